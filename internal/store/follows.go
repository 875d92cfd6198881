package store

import (
	"context"

	"github.com/gocql/gocql"
)

// --- Follow operations ---

// InsertFollow creates the follow edge. It returns false when the edge already
// existed, so callers only move counters for the request that won.
func (s *Store) InsertFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	applied, err := s.casApplied(ctx, `
		INSERT INTO follows (follower_id, following_id)
		VALUES (?, ?) IF NOT EXISTS`,
		followerID, followingID,
	)
	if err != nil {
		logg.Error("store", "Failed to create follow relationship", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(`
		INSERT INTO followers_by_following (following_id, follower_id)
		VALUES (?, ?)`,
		followingID, followerID,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to index follower", err)
		return true, err
	}

	logg.Info("store", "Follow relationship created (user IDs anonymized)")
	return true, nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) (bool, error) {
	applied, err := s.casApplied(ctx, `
		DELETE FROM follows WHERE follower_id = ? AND following_id = ? IF EXISTS`,
		followerID, followingID,
	)
	if err != nil {
		logg.Error("store", "Failed to delete follow relationship", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.Session.Query(`
		DELETE FROM followers_by_following WHERE following_id = ? AND follower_id = ?`,
		followingID, followerID,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to remove follower index", err)
		return true, err
	}

	logg.Info("store", "Follow relationship removed (user IDs anonymized)")
	return true, nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var id string
	err := s.Session.Query(`
		SELECT following_id FROM follows WHERE follower_id = ? AND following_id = ?`,
		followerID, followingID,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to query follow relationship", err)
		return false, err
	}
	return true, nil
}

func (s *Store) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM followers_by_following WHERE following_id = ?`, userID)
}

func (s *Store) CountFollowing(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM follows WHERE follower_id = ?`, userID)
}
