package service

import (
	"context"
	"fmt"

	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

// NewUser is the profile the identity provider sends when a user signs up.
type NewUser struct {
	ClerkID  string
	Username string
	Name     string
	Image    string
	Bio      string
	Email    string
}

// CreateUser provisions a user. It is a no-op when the identity already has
// a user.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) error {
	if nu.ClerkID == "" {
		return fmt.Errorf("missing identity id: %w", store.ErrInvalidArgument)
	}
	_, created, err := s.store.CreateUser(ctx, models.User{
		ClerkID:  nu.ClerkID,
		Username: nu.Username,
		Name:     nu.Name,
		Image:    nu.Image,
		Bio:      nu.Bio,
		Email:    nu.Email,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if created {
		logg.Info("service", "Provisioned user (identity anonymized)")
	}
	return nil
}

// UpdateUser patches the caller's own name and bio.
func (s *Service) UpdateUser(ctx context.Context, p Principal, name, bio string) error {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return err
	}
	return s.store.UpdateUser(ctx, me.ID, name, bio)
}

// GetUserByExternalID returns nil without error when no user has the identity.
func (s *Service) GetUserByExternalID(ctx context.Context, clerkID string) (*models.User, error) {
	return s.store.GetUserByClerkID(ctx, clerkID)
}

func (s *Service) GetUserProfile(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	return u, nil
}
