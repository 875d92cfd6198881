package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

const lockStripes = 64

// stripedLock serializes reconciliation of the same row across workers, so
// two recounts of one post never both apply the same delta.
type stripedLock struct {
	mu [lockStripes]sync.Mutex
}

func (l *stripedLock) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &l.mu[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func (w *Worker) handle(ctx context.Context, ev appkafka.Event) error {
	switch ev.Type {
	case appkafka.EventPostLiked, appkafka.EventPostUnliked, appkafka.EventCommentAdded:
		return w.reconcilePost(ctx, ev.PostID)
	case appkafka.EventPostCreated, appkafka.EventPostDeleted:
		return w.reconcileUser(ctx, ev.ActorID)
	case appkafka.EventUserFollowed, appkafka.EventUserUnfollowed:
		if err := w.reconcileUser(ctx, ev.ActorID); err != nil {
			return err
		}
		return w.reconcileUser(ctx, ev.TargetID)
	default:
		logg.Info("worker", "Ignoring unknown event type "+string(ev.Type))
		return nil
	}
}

// errGone reports that the post or user being reconciled no longer exists.
var errGone = errors.New("reconciled row not found")

const (
	settleDelay    = 50 * time.Millisecond
	stableAttempts = 3
)

type counterCheck struct {
	name      string
	read      func(context.Context) (int64, error)
	count     func(context.Context) (int64, error)
	apply     func(context.Context, int64) error
	entityTag string
}

// drift counts the relation rows between two reads of the counter and returns
// rows minus counter. It retries while the counter moves underneath the count
// and reports false once the attempts run out.
func drift(ctx context.Context, c counterCheck) (int64, bool, error) {
	for i := 0; i < stableAttempts; i++ {
		before, err := c.read(ctx)
		if err != nil {
			return 0, false, err
		}
		actual, err := c.count(ctx)
		if err != nil {
			return 0, false, err
		}
		after, err := c.read(ctx)
		if err != nil {
			return 0, false, err
		}
		if before == after {
			return actual - after, true, nil
		}
	}
	return 0, false, nil
}

// repair applies a drift only when two recounts one settle period apart agree.
// A live mutation that wrote its row but not yet its counter shows a drift that
// is gone on the second pass.
func (w *Worker) repair(ctx context.Context, c counterCheck) error {
	d, stable, err := drift(ctx, c)
	if err != nil || (stable && d == 0) {
		return err
	}
	if stable {
		if !w.settle(ctx) {
			return ctx.Err()
		}
		var again int64
		again, stable, err = drift(ctx, c)
		if err != nil {
			return err
		}
		stable = stable && again == d
	}
	if !stable {
		logg.Info("worker", fmt.Sprintf("Counter %s moved during recount for %s, leaving it to the next event", c.name, c.entityTag))
		return nil
	}

	if err := c.apply(ctx, d); err != nil {
		return err
	}
	logg.Info("worker", fmt.Sprintf("Repaired %s counter by %d for %s", c.name, d, c.entityTag))
	return nil
}

// reconcilePost recounts likes and comments and moves the counters by the
// difference. A deleted post is skipped.
func (w *Worker) reconcilePost(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("event without post id: %w", store.ErrInvalidArgument)
	}
	defer w.locks.lock("post:" + postID)()

	readPost := func(pick func(*models.Post) int64) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			p, err := w.store.GetPost(ctx, postID)
			if err != nil {
				return 0, err
			}
			if p == nil {
				return 0, errGone
			}
			return pick(p), nil
		}
	}
	applyPost := func(counter store.PostCounter) func(context.Context, int64) error {
		return func(ctx context.Context, d int64) error {
			return w.store.AddPostCounter(ctx, postID, counter, d)
		}
	}
	countPost := func(count func(context.Context, string) (int64, error)) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return count(ctx, postID) }
	}

	checks := []counterCheck{
		{"likes", readPost(func(p *models.Post) int64 { return p.Likes }), countPost(w.store.CountLikes), applyPost(store.CounterLikes), "post_id=" + postID},
		{"comments", readPost(func(p *models.Post) int64 { return p.Comments }), countPost(w.store.CountComments), applyPost(store.CounterComments), "post_id=" + postID},
	}
	return w.runChecks(ctx, checks)
}

// reconcileUser recounts followers, following and posts for userID.
func (w *Worker) reconcileUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("event without user id: %w", store.ErrInvalidArgument)
	}
	defer w.locks.lock("user:" + userID)()

	readUser := func(pick func(*models.User) int64) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) {
			u, err := w.store.GetUserByID(ctx, userID)
			if err != nil {
				return 0, err
			}
			if u == nil {
				return 0, errGone
			}
			return pick(u), nil
		}
	}
	applyUser := func(counter store.UserCounter) func(context.Context, int64) error {
		return func(ctx context.Context, d int64) error {
			return w.store.AddUserCounter(ctx, userID, counter, d)
		}
	}
	countUser := func(count func(context.Context, string) (int64, error)) func(context.Context) (int64, error) {
		return func(ctx context.Context) (int64, error) { return count(ctx, userID) }
	}

	tag := "user_id=" + userID
	checks := []counterCheck{
		{string(store.CounterFollowers), readUser(func(u *models.User) int64 { return u.Followers }), countUser(w.store.CountFollowers), applyUser(store.CounterFollowers), tag},
		{string(store.CounterFollowing), readUser(func(u *models.User) int64 { return u.Following }), countUser(w.store.CountFollowing), applyUser(store.CounterFollowing), tag},
		{string(store.CounterPosts), readUser(func(u *models.User) int64 { return u.Posts }), countUser(w.store.CountPostsByUser), applyUser(store.CounterPosts), tag},
	}
	return w.runChecks(ctx, checks)
}

func (w *Worker) runChecks(ctx context.Context, checks []counterCheck) error {
	for _, c := range checks {
		if err := w.repair(ctx, c); err != nil {
			if errors.Is(err, errGone) {
				return nil
			}
			return err
		}
	}
	return nil
}
