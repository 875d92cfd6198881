package store

import (
	"context"
	"time"

	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
)

// --- Like operations ---

func (s *Store) InsertLike(ctx context.Context, userID, postID string) (bool, error) {
	applied, err := s.casApplied(ctx, `
		INSERT INTO likes (post_id, user_id) VALUES (?, ?) IF NOT EXISTS`,
		postID, userID,
	)
	if err != nil {
		logg.Error("store", "Failed to insert like", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	applied, err := s.casApplied(ctx, `
		DELETE FROM likes WHERE post_id = ? AND user_id = ? IF EXISTS`,
		postID, userID,
	)
	if err != nil {
		logg.Error("store", "Failed to delete like", err)
		return false, err
	}
	return applied, nil
}

func (s *Store) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	return s.exists(ctx, `SELECT user_id FROM likes WHERE post_id = ? AND user_id = ?`, postID, userID)
}

func (s *Store) CountLikes(ctx context.Context, postID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM likes WHERE post_id = ?`, postID)
}

func (s *Store) DeleteLikesForPost(ctx context.Context, postID string) error {
	if err := s.Session.Query(`DELETE FROM likes WHERE post_id = ?`, postID).
		WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to delete likes for post", err)
		return err
	}
	return nil
}

// --- Save operations ---

// InsertSave bookmarks a post. The (user, post) row in saves is the uniqueness
// guard; saves_by_user and saves_by_post are written once it applied. The
// save_id time UUID orders saves made within the same millisecond.
func (s *Store) InsertSave(ctx context.Context, sv models.Save) (bool, error) {
	saveID := gocql.TimeUUID()
	applied, err := s.casApplied(ctx, `
		INSERT INTO saves (user_id, post_id, saved_at, save_id) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		sv.UserID, sv.PostID, sv.Saved, saveID,
	)
	if err != nil {
		logg.Error("store", "Failed to insert save", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`INSERT INTO saves_by_user (user_id, saved_at, save_id, post_id) VALUES (?, ?, ?, ?)`,
		sv.UserID, sv.Saved, saveID, sv.PostID)
	batch.Query(`INSERT INTO saves_by_post (post_id, user_id) VALUES (?, ?)`,
		sv.PostID, sv.UserID)
	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to index save", err)
		return true, err
	}
	return true, nil
}

func (s *Store) DeleteSave(ctx context.Context, userID, postID string) (bool, error) {
	var savedAt time.Time
	var saveID gocql.UUID
	err := s.Session.Query(`
		SELECT saved_at, save_id FROM saves WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	).WithContext(ctx).Scan(&savedAt, &saveID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to query save", err)
		return false, err
	}

	applied, err := s.casApplied(ctx, `
		DELETE FROM saves WHERE user_id = ? AND post_id = ? IF EXISTS`,
		userID, postID,
	)
	if err != nil {
		logg.Error("store", "Failed to delete save", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	if err := s.unindexSave(ctx, userID, postID, savedAt, saveID); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) unindexSave(ctx context.Context, userID, postID string, savedAt time.Time, saveID gocql.UUID) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM saves_by_user WHERE user_id = ? AND saved_at = ? AND save_id = ?`,
		userID, savedAt, saveID)
	batch.Query(`DELETE FROM saves_by_post WHERE post_id = ? AND user_id = ?`,
		postID, userID)
	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to remove save index", err)
		return err
	}
	return nil
}

func (s *Store) HasSaved(ctx context.Context, userID, postID string) (bool, error) {
	return s.exists(ctx, `SELECT post_id FROM saves WHERE user_id = ? AND post_id = ?`, userID, postID)
}

// ListSaves returns the user's saves, most recent first.
func (s *Store) ListSaves(ctx context.Context, userID string) ([]models.Save, error) {
	iter := s.Session.Query(`
		SELECT saved_at, post_id FROM saves_by_user WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var res []models.Save
	var savedAt time.Time
	var postID string
	for iter.Scan(&savedAt, &postID) {
		res = append(res, models.Save{UserID: userID, PostID: postID, Saved: savedAt})
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list saves", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) DeleteSavesForPost(ctx context.Context, postID string) error {
	iter := s.Session.Query(`
		SELECT user_id FROM saves_by_post WHERE post_id = ?`,
		postID,
	).WithContext(ctx).Iter()

	var users []string
	var userID string
	for iter.Scan(&userID) {
		users = append(users, userID)
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list saves for post", err)
		return err
	}

	for _, u := range users {
		if _, err := s.DeleteSave(ctx, u, postID); err != nil {
			return err
		}
	}
	return nil
}

// exists reports whether a point query returned a row.
func (s *Store) exists(ctx context.Context, stmt string, values ...interface{}) (bool, error) {
	var v string
	err := s.Session.Query(stmt, values...).WithContext(ctx).Scan(&v)
	if err != nil {
		if err == gocql.ErrNotFound {
			return false, nil
		}
		logg.Error("store", "Failed to run existence query", err)
		return false, err
	}
	return true, nil
}
