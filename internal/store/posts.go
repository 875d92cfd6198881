package store

import (
	"context"
	"fmt"

	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
)

// timelineBucket is the single partition of posts_timeline. Every post lands
// in it so the global feed reads back in creation order with one query.
const timelineBucket = "all"

// --- Post operations ---

func (s *Store) InsertPost(ctx context.Context, p models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO posts (post_id, user_id, image_url, storage_id, caption, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.ImageURL, p.StorageID, p.Caption, p.Created)
	batch.Query(`
		INSERT INTO posts_timeline (bucket, created_at, post_id)
		VALUES (?, ?, ?)`,
		timelineBucket, p.Created, p.ID)
	batch.Query(`
		INSERT INTO posts_by_user (user_id, created_at, post_id)
		VALUES (?, ?, ?)`,
		p.UserID, p.Created, p.ID)

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to add post", err)
		return err
	}

	logg.Info("store", "Post added to posts table (post content anonymized)")
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p := models.Post{ID: id}
	err := s.Session.Query(`
		SELECT user_id, image_url, storage_id, caption, created_at
		FROM posts WHERE post_id = ?`,
		id,
	).WithContext(ctx).Scan(&p.UserID, &p.ImageURL, &p.StorageID, &p.Caption, &p.Created)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, nil
		}
		logg.Error("store", "Failed to query post", err)
		return nil, err
	}

	err = s.Session.Query(`
		SELECT likes, comments FROM post_counters WHERE post_id = ?`,
		id,
	).WithContext(ctx).Scan(&p.Likes, &p.Comments)
	if err != nil && err != gocql.ErrNotFound {
		logg.Error("store", "Failed to query post counters", err)
		return nil, err
	}
	return &p, nil
}

// ListPosts returns every post, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id FROM posts_timeline WHERE bucket = ?`,
		timelineBucket,
	).WithContext(ctx).Iter()
	return s.collectPosts(ctx, iter)
}

// ListPostsByUser returns the user's posts, newest first.
func (s *Store) ListPostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	iter := s.Session.Query(`
		SELECT post_id FROM posts_by_user WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()
	return s.collectPosts(ctx, iter)
}

func (s *Store) collectPosts(ctx context.Context, iter *gocql.Iter) ([]models.Post, error) {
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list posts", err)
		return nil, err
	}

	res := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
		// index row left behind by an interrupted delete
		if p == nil {
			continue
		}
		res = append(res, *p)
	}
	return res, nil
}

func (s *Store) UpdateCaption(ctx context.Context, postID, caption string) error {
	if err := s.Session.Query(
		`UPDATE posts SET caption = ? WHERE post_id = ?`,
		caption, postID,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to update caption", err)
		return err
	}
	return nil
}

// DeletePost removes the post row, its index rows and its counters. Relation
// rows are removed separately by the Delete*ForPost methods.
func (s *Store) DeletePost(ctx context.Context, p models.Post) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`DELETE FROM posts WHERE post_id = ?`, p.ID)
	batch.Query(`DELETE FROM posts_timeline WHERE bucket = ? AND created_at = ? AND post_id = ?`,
		timelineBucket, p.Created, p.ID)
	batch.Query(`DELETE FROM posts_by_user WHERE user_id = ? AND created_at = ? AND post_id = ?`,
		p.UserID, p.Created, p.ID)

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to delete post", err)
		return err
	}

	// Counter tables cannot share a logged batch with regular tables.
	if err := s.Session.Query(`DELETE FROM post_counters WHERE post_id = ?`, p.ID).
		WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to delete post counters", err)
		return err
	}

	logg.Info("store", "Post deleted (post ID anonymized)")
	return nil
}

func (s *Store) CountPostsByUser(ctx context.Context, userID string) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM posts_by_user WHERE user_id = ?`, userID)
}

// AddPostCounter applies delta to one of the post's counters.
func (s *Store) AddPostCounter(ctx context.Context, postID string, c PostCounter, delta int64) error {
	stmt := fmt.Sprintf(`UPDATE post_counters SET %[1]s = %[1]s + ? WHERE post_id = ?`, c)
	if err := s.Session.Query(stmt, delta, postID).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to update post counter "+string(c), err)
		return err
	}
	return nil
}
