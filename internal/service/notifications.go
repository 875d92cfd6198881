package service

import (
	"context"

	"example.com/snapgram/internal/models"
)

// GetNotifications returns the caller's notifications newest first, joined
// with sender, post and comment text.
func (s *Service) GetNotifications(ctx context.Context, p Principal) ([]models.NotificationInfo, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListNotifications(ctx, me.ID)
	if err != nil {
		return nil, err
	}

	res := make([]models.NotificationInfo, 0, len(list))
	for _, n := range list {
		info := models.NotificationInfo{Notification: n}

		sender, err := s.store.GetUserByID(ctx, n.SenderID)
		if err != nil {
			return nil, err
		}
		if sender != nil {
			info.Sender = models.PublicUser{ID: sender.ID, Username: sender.Username, Image: sender.Image}
		}

		if n.PostID != "" {
			if info.Post, err = s.store.GetPost(ctx, n.PostID); err != nil {
				return nil, err
			}
		}
		if n.Type == models.NotificationComment && n.CommentID != "" {
			c, err := s.store.GetComment(ctx, n.CommentID)
			if err != nil {
				return nil, err
			}
			if c != nil {
				info.Comment = c.Content
			}
		}
		res = append(res, info)
	}
	return res, nil
}
