package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
)

type UserRepository interface {
	// FindProfile returns nil, nil when the user does not exist.
	FindProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
	// UpdateProfile returns the stored profile after the update, or nil, nil when
	// the user does not exist.
	UpdateProfile(ctx context.Context, userID string, update entity.ProfileUpdate) (*entity.UserProfile, error)
}
