package service

import (
	"context"
	"fmt"
	"strings"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

// AddComment returns the new comment id. Nothing is written when the post
// does not exist.
func (s *Service) AddComment(ctx context.Context, p Principal, postID, content string) (string, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty comment: %w", store.ErrInvalidArgument)
	}
	post, err := s.requirePost(ctx, postID)
	if err != nil {
		return "", err
	}

	c := models.Comment{
		ID:      store.NewID(),
		UserID:  me.ID,
		PostID:  post.ID,
		Content: content,
		Created: s.now(),
	}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return "", fmt.Errorf("insert comment: %w", err)
	}
	if err := s.store.AddPostCounter(ctx, post.ID, store.CounterComments, 1); err != nil {
		return "", err
	}
	if post.UserID != me.ID {
		if err := s.notify(ctx, models.Notification{
			ReceiverID: post.UserID,
			SenderID:   me.ID,
			Type:       models.NotificationComment,
			PostID:     post.ID,
			CommentID:  c.ID,
		}); err != nil {
			return "", err
		}
	}
	s.publish(ctx, appkafka.Event{Type: appkafka.EventCommentAdded, ActorID: me.ID, UserID: post.UserID, PostID: post.ID})
	return c.ID, nil
}

// GetComments returns the post's comments oldest first with the commenter's
// name and image.
func (s *Service) GetComments(ctx context.Context, postID string) ([]models.CommentWithUser, error) {
	comments, err := s.store.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	users := make(map[string]*models.User)
	res := make([]models.CommentWithUser, 0, len(comments))
	for _, c := range comments {
		u, ok := users[c.UserID]
		if !ok {
			if u, err = s.store.GetUserByID(ctx, c.UserID); err != nil {
				return nil, err
			}
			users[c.UserID] = u
		}
		var pu models.PublicUser
		if u != nil {
			pu = models.PublicUser{Name: u.Name, Image: u.Image}
		}
		res = append(res, models.CommentWithUser{Comment: c, User: pu})
	}
	return res, nil
}
