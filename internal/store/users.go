package store

import (
	"context"
	"fmt"

	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
)

// --- User operations ---

// CreateUser inserts a user unless one with the same Clerk id already exists,
// in which case the existing id is returned with created=false.
func (s *Store) CreateUser(ctx context.Context, u models.User) (string, bool, error) {
	existing, err := s.GetUserByClerkID(ctx, u.ClerkID)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	id := u.ID
	if id == "" {
		id = NewID()
	}

	// Claim the Clerk id first so two concurrent webhooks create one user.
	applied, err := s.casApplied(ctx, `
		INSERT INTO users_by_clerk_id (clerk_id, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		u.ClerkID, id,
	)
	if err != nil {
		logg.Error("store", "Failed to claim clerk id", err)
		return "", false, err
	}
	if !applied {
		claimed, err := s.claimedUserID(ctx, u.ClerkID)
		if err != nil {
			return "", false, err
		}
		if claimed == "" {
			return "", false, fmt.Errorf("clerk id claim not readable")
		}
		existing, err := s.GetUserByID(ctx, claimed)
		if err != nil {
			return "", false, err
		}
		if existing != nil {
			return existing.ID, false, nil
		}
		// Claimed by an attempt that never wrote the user row; finish it.
		id = claimed
	}

	if err := s.Session.Query(`
		INSERT INTO users (user_id, clerk_id, username, name, email, image, bio)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, u.ClerkID, u.Username, u.Name, u.Email, u.Image, u.Bio,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return "", false, err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return id, true, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u := models.User{ID: id}
	err := s.Session.Query(`
		SELECT clerk_id, username, name, email, image, bio
		FROM users WHERE user_id = ?`,
		id,
	).WithContext(ctx).Scan(&u.ClerkID, &u.Username, &u.Name, &u.Email, &u.Image, &u.Bio)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		logg.Error("store", "Failed to query user", err)
		return nil, err
	}

	err = s.Session.Query(`
		SELECT followers, following, posts FROM user_counters WHERE user_id = ?`,
		id,
	).WithContext(ctx).Scan(&u.Followers, &u.Following, &u.Posts)
	if err != nil && err != gocql.ErrNotFound {
		logg.Error("store", "Failed to query user counters", err)
		return nil, err
	}
	return &u, nil
}

func (s *Store) claimedUserID(ctx context.Context, clerkID string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_clerk_id WHERE clerk_id = ?`,
		clerkID,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return "", nil
		}
		logg.Error("store", "Failed to query user by clerk id", err)
		return "", err
	}
	return id, nil
}

// GetUserByClerkID resolves a user from the identity provider's user id.
func (s *Store) GetUserByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	id, err := s.claimedUserID(ctx, clerkID)
	if err != nil || id == "" {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) UpdateUser(ctx context.Context, id, name, bio string) error {
	if err := s.Session.Query(
		`UPDATE users SET name = ?, bio = ? WHERE user_id = ?`,
		name, bio, id,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to update user", err)
		return err
	}
	return nil
}

// AddUserCounter applies delta to one of the user's counters.
func (s *Store) AddUserCounter(ctx context.Context, userID string, c UserCounter, delta int64) error {
	stmt := fmt.Sprintf(`UPDATE user_counters SET %[1]s = %[1]s + ? WHERE user_id = ?`, c)
	if err := s.Session.Query(stmt, delta, userID).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to update user counter "+string(c), err)
		return err
	}
	return nil
}
