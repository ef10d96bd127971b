package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"medride/internal/domain"
	"medride/internal/redis"
	"medride/internal/repository"
)

// ProfileService resolves callers to profiles, caching them in Redis when available.
type ProfileService struct {
	store  repository.Store
	cache  redis.ProfileCacheInterface
	logger *logrus.Logger
}

// NewProfileService creates a new ProfileService. cache may be nil.
func NewProfileService(store repository.Store, cache redis.ProfileCacheInterface, logger *logrus.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Resolve returns the profile of an authenticated subject.
// Returns ErrUnauthenticated when no profile exists for it.
func (s *ProfileService) Resolve(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if s.cache != nil {
		cached, err := s.cache.GetProfile(ctx, userID)
		if err != nil {
			s.logger.WithError(err).Warn("profile cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	profile, err := s.store.Profiles().GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProfile(ctx, profile); err != nil {
			s.logger.WithError(err).Warn("profile cache write failed")
		}
	}
	return profile, nil
}

// Actor returns the actor for an authenticated subject.
func (s *ProfileService) Actor(ctx context.Context, userID string) (Actor, error) {
	profile, err := s.Resolve(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: profile.ID, Role: profile.Role}, nil
}
