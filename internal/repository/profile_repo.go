package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
)

const profileCollection = "users"

// ProfileRepository handles document store operations for subject profiles
type ProfileRepository struct {
	store docstore.Store
}

func NewProfileRepository(store docstore.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

// Create inserts or overwrites a profile
func (r *ProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	return r.store.Set(ctx, profileCollection, profile.PhoneNumber, profile)
}

// FindByPhone finds a profile by phone number
func (r *ProfileRepository) FindByPhone(ctx context.Context, phoneNumber string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.store.Get(ctx, profileCollection, phoneNumber, &profile); err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// GetOrCreate finds a profile or creates an incomplete one
func (r *ProfileRepository) GetOrCreate(ctx context.Context, phoneNumber string, now time.Time) (*model.Profile, error) {
	profile, err := r.FindByPhone(ctx, phoneNumber)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	profile = &model.Profile{
		PhoneNumber:     phoneNumber,
		ProfileComplete: false,
		CreatedAt:       now,
	}
	if err := r.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
