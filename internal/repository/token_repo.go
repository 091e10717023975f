package repository

import (
	"context"

	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
)

const refreshTokenCollection = "refreshTokens"

// RefreshTokenRepository keeps the single live refresh token per phone number
type RefreshTokenRepository struct {
	store docstore.Store
}

func NewRefreshTokenRepository(store docstore.Store) *RefreshTokenRepository {
	return &RefreshTokenRepository{store: store}
}

// Save overwrites any previous record for the phone number
func (r *RefreshTokenRepository) Save(ctx context.Context, record *model.RefreshTokenRecord) error {
	return r.store.Set(ctx, refreshTokenCollection, record.PhoneNumber, record)
}

func (r *RefreshTokenRepository) Find(ctx context.Context, phoneNumber string) (*model.RefreshTokenRecord, error) {
	var record model.RefreshTokenRecord
	if err := r.store.Get(ctx, refreshTokenCollection, phoneNumber, &record); err != nil {
		return nil, translate(err)
	}
	record.PhoneNumber = phoneNumber
	return &record, nil
}

func (r *RefreshTokenRepository) Delete(ctx context.Context, phoneNumber string) error {
	return r.store.Delete(ctx, refreshTokenCollection, phoneNumber)
}
