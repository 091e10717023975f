package model

import "time"

// Profile is the subject record keyed by phone number. ProfileComplete is owned
// by the profile collaborator and only read here.
type Profile struct {
	PhoneNumber     string    `json:"phoneNumber" firestore:"phoneNumber"`
	ProfileComplete bool      `json:"profileComplete" firestore:"profileComplete"`
	CreatedAt       time.Time `json:"createdAt" firestore:"createdAt"`
}

// ProfileResponse is the safe version of Profile for API responses
type ProfileResponse struct {
	PhoneNumber     string `json:"phoneNumber"`
	ProfileComplete bool   `json:"profileComplete"`
}

// ToResponse converts Profile to ProfileResponse
func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		PhoneNumber:     p.PhoneNumber,
		ProfileComplete: p.ProfileComplete,
	}
}
