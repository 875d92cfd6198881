package store

import (
	"context"
	"time"

	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
)

// --- Comment operations ---

func (s *Store) InsertComment(ctx context.Context, c models.Comment) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO comments (post_id, created_at, comment_id, user_id, content)
		VALUES (?, ?, ?, ?, ?)`,
		c.PostID, c.Created, c.ID, c.UserID, c.Content)
	batch.Query(`
		INSERT INTO comments_by_id (comment_id, post_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.UserID, c.Content, c.Created)

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to add comment", err)
		return err
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	c := models.Comment{ID: id}
	err := s.Session.Query(`
		SELECT post_id, user_id, content, created_at FROM comments_by_id WHERE comment_id = ?`,
		id,
	).WithContext(ctx).Scan(&c.PostID, &c.UserID, &c.Content, &c.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		logg.Error("store", "Failed to query comment", err)
		return nil, err
	}
	return &c, nil
}

// ListComments returns a post's comments in insertion order.
func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	iter := s.Session.Query(`
		SELECT created_at, comment_id, user_id, content FROM comments WHERE post_id = ?`,
		postID,
	).WithContext(ctx).Iter()

	var res []models.Comment
	var created time.Time
	var id, userID, content string
	for iter.Scan(&created, &id, &userID, &content) {
		res = append(res, models.Comment{
			ID:      id,
			UserID:  userID,
			PostID:  postID,
			Content: content,
			Created: created,
		})
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list comments", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) CountComments(ctx context.Context, postID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID)
}

func (s *Store) DeleteCommentsForPost(ctx context.Context, postID string) error {
	comments, err := s.ListComments(ctx, postID)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	for _, c := range comments {
		batch.Query(`DELETE FROM comments_by_id WHERE comment_id = ?`, c.ID)
	}
	batch.Query(`DELETE FROM comments WHERE post_id = ?`, postID)

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to delete comments for post", err)
		return err
	}
	return nil
}
