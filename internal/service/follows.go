package service

import (
	"context"
	"fmt"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

func (s *Service) IsFollowing(ctx context.Context, p Principal, followingID string) (bool, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return false, err
	}
	return s.store.IsFollowing(ctx, me.ID, followingID)
}

// ToggleFollow follows or unfollows followingID and returns whether the caller
// follows them afterwards.
func (s *Service) ToggleFollow(ctx context.Context, p Principal, followingID string) (bool, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return false, err
	}
	if followingID == me.ID {
		return false, fmt.Errorf("cannot follow yourself: %w", store.ErrInvalidArgument)
	}
	target, err := s.store.GetUserByID(ctx, followingID)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, fmt.Errorf("user %s: %w", followingID, store.ErrNotFound)
	}

	removed, err := s.store.DeleteFollow(ctx, me.ID, followingID)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.moveFollowCounters(ctx, me.ID, followingID, -1); err != nil {
			return false, err
		}
		s.publish(ctx, appkafka.Event{Type: appkafka.EventUserUnfollowed, ActorID: me.ID, TargetID: followingID})
		return false, nil
	}

	inserted, err := s.store.InsertFollow(ctx, me.ID, followingID)
	if err != nil {
		return false, err
	}
	// A concurrent request created the edge and owns its side effects.
	if !inserted {
		return true, nil
	}
	if err := s.moveFollowCounters(ctx, me.ID, followingID, 1); err != nil {
		return false, err
	}
	if err := s.notify(ctx, models.Notification{
		ReceiverID: followingID,
		SenderID:   me.ID,
		Type:       models.NotificationFollow,
	}); err != nil {
		return false, err
	}
	s.publish(ctx, appkafka.Event{Type: appkafka.EventUserFollowed, ActorID: me.ID, TargetID: followingID})
	return true, nil
}

func (s *Service) moveFollowCounters(ctx context.Context, followerID, followingID string, delta int64) error {
	if err := s.store.AddUserCounter(ctx, followerID, store.CounterFollowing, delta); err != nil {
		return err
	}
	return s.store.AddUserCounter(ctx, followingID, store.CounterFollowers, delta)
}
