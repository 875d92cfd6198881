package store

import (
	"context"
	"time"

	"example.com/snapgram/internal/models"
	"github.com/gocql/gocql"
)

// --- Notification operations ---

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	batch := s.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(`
		INSERT INTO notifications (receiver_id, created_at, notification_id, sender_id, type, post_id, comment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ReceiverID, n.Created, n.ID, n.SenderID, string(n.Type), n.PostID, n.CommentID)
	if n.PostID != "" {
		batch.Query(`
			INSERT INTO notifications_by_post (post_id, receiver_id, created_at, notification_id)
			VALUES (?, ?, ?, ?)`,
			n.PostID, n.ReceiverID, n.Created, n.ID)
	}

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to add notification", err)
		return err
	}
	return nil
}

// ListNotifications returns the receiver's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, receiverID string) ([]models.Notification, error) {
	iter := s.Session.Query(`
		SELECT created_at, notification_id, sender_id, type, post_id, comment_id
		FROM notifications WHERE receiver_id = ?`,
		receiverID,
	).WithContext(ctx).Iter()

	var res []models.Notification
	var created time.Time
	var id, sender, typ, postID, commentID string
	for iter.Scan(&created, &id, &sender, &typ, &postID, &commentID) {
		res = append(res, models.Notification{
			ID:         id,
			ReceiverID: receiverID,
			SenderID:   sender,
			Type:       models.NotificationType(typ),
			PostID:     postID,
			CommentID:  commentID,
			Created:    created,
		})
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list notifications", err)
		return nil, err
	}
	return res, nil
}

func (s *Store) DeleteNotificationsForPost(ctx context.Context, postID string) error {
	iter := s.Session.Query(`
		SELECT receiver_id, created_at, notification_id FROM notifications_by_post WHERE post_id = ?`,
		postID,
	).WithContext(ctx).Iter()

	batch := s.Session.NewBatch(gocql.LoggedBatch)
	var receiver, id string
	var created time.Time
	for iter.Scan(&receiver, &created, &id) {
		batch.Query(`DELETE FROM notifications WHERE receiver_id = ? AND created_at = ? AND notification_id = ?`,
			receiver, created, id)
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list notifications for post", err)
		return err
	}
	batch.Query(`DELETE FROM notifications_by_post WHERE post_id = ?`, postID)

	if err := s.execBatch(ctx, batch); err != nil {
		logg.Error("store", "Failed to delete notifications for post", err)
		return err
	}
	return nil
}
