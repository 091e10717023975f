package repository

import (
	"context"
	"errors"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
)

const otpCollection = "otps"

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// OTPRepository handles document store operations for OTP sessions
type OTPRepository struct {
	store docstore.Store
}

func NewOTPRepository(store docstore.Store) *OTPRepository {
	return &OTPRepository{store: store}
}

// Save creates or overwrites a session under its ID
func (r *OTPRepository) Save(ctx context.Context, session *model.OTPSession) error {
	return r.store.Set(ctx, otpCollection, session.ID, session)
}

// FindByID loads a session, returning ErrNotFound when it does not exist
func (r *OTPRepository) FindByID(ctx context.Context, id string) (*model.OTPSession, error) {
	var session model.OTPSession
	if err := r.store.Get(ctx, otpCollection, id, &session); err != nil {
		return nil, translate(err)
	}
	session.ID = id
	return &session, nil
}

// Delete removes a session; deleting a missing session is a no-op
func (r *OTPRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, otpCollection, id)
}

func translate(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
