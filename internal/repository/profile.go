package repository

import (
	"context"

	"medride/internal/domain"
)

// ProfileRepository defines read access to user profiles.
type ProfileRepository interface {
	// GetByID retrieves a profile by ID.
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
}
