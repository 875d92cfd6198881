// Package service implements the social operations on top of the row-level
// store: authentication resolution, ownership checks, counter maintenance and
// notification side effects.
package service

import (
	"context"
	"fmt"
	"time"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/filestore"
	"example.com/snapgram/internal/logger"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

var logg = logger.New()

// Principal is the verified identity-provider user id of the caller. The
// empty Principal means the request carried no identity.
type Principal string

type Service struct {
	store  store.StoreInterface
	files  filestore.FileStore
	events appkafka.Publisher
	now    func() time.Time
}

func New(st store.StoreInterface, files filestore.FileStore, events appkafka.Publisher) *Service {
	if events == nil {
		events = appkafka.NopPublisher{}
	}
	return &Service{
		store:  st,
		files:  files,
		events: events,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

// SetClock replaces the time source. Tests use it to get distinct timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// GetAuthenticatedUser resolves the caller's user row. Every other
// caller-scoped operation goes through it first.
func (s *Service) GetAuthenticatedUser(ctx context.Context, p Principal) (*models.User, error) {
	if p == "" {
		return nil, store.ErrUnauthenticated
	}
	u, err := s.store.GetUserByClerkID(ctx, string(p))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user for identity: %w", store.ErrNotFound)
	}
	return u, nil
}

// publish sends an activity event. The mutation has already been applied, so
// a broker failure is logged and swallowed.
func (s *Service) publish(ctx context.Context, ev appkafka.Event) {
	ev.At = s.now()
	if err := s.events.Publish(ctx, ev); err != nil {
		logg.Error("service", "Failed to publish activity event "+string(ev.Type), err)
	}
}

func (s *Service) notify(ctx context.Context, n models.Notification) error {
	n.ID = store.NewID()
	n.Created = s.now()
	return s.store.InsertNotification(ctx, n)
}

func (s *Service) requirePost(ctx context.Context, postID string) (*models.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, store.ErrNotFound)
	}
	return p, nil
}
