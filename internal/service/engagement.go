package service

import (
	"context"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

// ToggleLike likes or unlikes postID and returns whether the caller likes it
// afterwards.
func (s *Service) ToggleLike(ctx context.Context, p Principal, postID string) (bool, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return false, err
	}
	post, err := s.requirePost(ctx, postID)
	if err != nil {
		return false, err
	}

	removed, err := s.store.DeleteLike(ctx, me.ID, post.ID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.store.AddPostCounter(ctx, post.ID, store.CounterLikes, -1); err != nil {
			return false, err
		}
		s.publish(ctx, appkafka.Event{Type: appkafka.EventPostUnliked, ActorID: me.ID, UserID: post.UserID, PostID: post.ID})
		return false, nil
	}

	inserted, err := s.store.InsertLike(ctx, me.ID, post.ID)
	if err != nil {
		return false, err
	}
	if !inserted {
		return true, nil
	}
	if err := s.store.AddPostCounter(ctx, post.ID, store.CounterLikes, 1); err != nil {
		return false, err
	}
	if post.UserID != me.ID {
		if err := s.notify(ctx, models.Notification{
			ReceiverID: post.UserID,
			SenderID:   me.ID,
			Type:       models.NotificationLike,
			PostID:     post.ID,
		}); err != nil {
			return false, err
		}
	}
	s.publish(ctx, appkafka.Event{Type: appkafka.EventPostLiked, ActorID: me.ID, UserID: post.UserID, PostID: post.ID})
	return true, nil
}

// ToggleSave bookmarks or un-bookmarks postID and returns the resulting state.
func (s *Service) ToggleSave(ctx context.Context, p Principal, postID string) (bool, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return false, err
	}
	post, err := s.requirePost(ctx, postID)
	if err != nil {
		return false, err
	}

	removed, err := s.store.DeleteSave(ctx, me.ID, post.ID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := s.store.InsertSave(ctx, models.Save{UserID: me.ID, PostID: post.ID, Saved: s.now()}); err != nil {
		return false, err
	}
	return true, nil
}

// GetSaves returns the caller's saved posts, most recent save first. A save
// whose post no longer exists yields a nil entry.
func (s *Service) GetSaves(ctx context.Context, p Principal) ([]*models.Post, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return nil, err
	}
	saves, err := s.store.ListSaves(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	res := make([]*models.Post, 0, len(saves))
	for _, sv := range saves {
		post, err := s.store.GetPost(ctx, sv.PostID)
		if err != nil {
			return nil, err
		}
		res = append(res, post)
	}
	return res, nil
}
