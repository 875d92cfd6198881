package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runWorkerOnce processes a single Kafka message for testing.
func runWorkerOnce(ctx context.Context, w *Worker, kafkaReader appkafka.KafkaReader) error {
	msg, err := kafkaReader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	if len(msg.Value) == 0 {
		return nil
	}

	ev, err := appkafka.DecodeEvent(msg.Value)
	if err != nil {
		return err
	}
	return w.handle(ctx, ev)
}

func eventMessage(t *testing.T, ev appkafka.Event) kafka.Message {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(ev.Type), Value: data}
}

func newUser(t *testing.T, st *store.MockStore, clerkID string) string {
	t.Helper()
	id, _, err := st.CreateUser(context.Background(), models.User{ClerkID: clerkID, Username: clerkID})
	require.NoError(t, err)
	return id
}

func newPost(t *testing.T, st *store.MockStore, userID string) string {
	t.Helper()
	id := store.NewID()
	require.NoError(t, st.InsertPost(context.Background(), models.Post{ID: id, UserID: userID, Created: time.Now()}))
	return id
}

// ---------- Positive tests ----------

func TestWorker_RepairsPostCounters(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	fan := newUser(t, st, "fan")
	postID := newPost(t, st, owner)

	// Rows written, counters never moved.
	_, err := st.InsertLike(ctx, fan, postID)
	require.NoError(t, err)
	require.NoError(t, st.InsertComment(ctx, models.Comment{ID: store.NewID(), UserID: fan, PostID: postID, Content: "hi", Created: time.Now()}))
	require.NoError(t, st.InsertComment(ctx, models.Comment{ID: store.NewID(), UserID: owner, PostID: postID, Content: "yo", Created: time.Now()}))

	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, appkafka.Event{Type: appkafka.EventPostLiked, ActorID: fan, PostID: postID})},
	}
	w := New(st, mockKafka, 1, 1)
	require.NoError(t, runWorkerOnce(ctx, w, mockKafka))

	post, err := st.GetPost(ctx, postID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), post.Likes)
	assert.Equal(t, int64(2), post.Comments)
}

func TestWorker_LowersInflatedCounter(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	postID := newPost(t, st, owner)
	require.NoError(t, st.AddPostCounter(ctx, postID, store.CounterLikes, 3))

	w := New(st, &appkafka.MockKafka{}, 1, 1)
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostUnliked, PostID: postID}))

	post, _ := st.GetPost(ctx, postID)
	assert.Zero(t, post.Likes)
}

func TestWorker_RepairsFollowCounters(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	a := newUser(t, st, "a")
	b := newUser(t, st, "b")
	_, err := st.InsertFollow(ctx, a, b)
	require.NoError(t, err)

	w := New(st, &appkafka.MockKafka{}, 1, 1)
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventUserFollowed, ActorID: a, TargetID: b}))

	ua, _ := st.GetUserByID(ctx, a)
	ub, _ := st.GetUserByID(ctx, b)
	assert.Equal(t, int64(1), ua.Following)
	assert.Zero(t, ua.Followers)
	assert.Equal(t, int64(1), ub.Followers)
	assert.Zero(t, ub.Following)
}

func TestWorker_RepairsPostsCounter(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	a := newUser(t, st, "a")
	newPost(t, st, a)
	newPost(t, st, a)
	require.NoError(t, st.AddUserCounter(ctx, a, store.CounterPosts, 5))

	w := New(st, &appkafka.MockKafka{}, 1, 1)
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostDeleted, ActorID: a}))

	u, _ := st.GetUserByID(ctx, a)
	assert.Equal(t, int64(2), u.Posts)
}

func TestWorker_DeletedPostSkipped(t *testing.T) {
	w := New(store.NewMock(), &appkafka.MockKafka{}, 1, 1)
	err := w.handle(context.Background(), appkafka.Event{Type: appkafka.EventCommentAdded, PostID: "gone"})
	assert.NoError(t, err)
}

func TestWorker_ConcurrentReconcileAppliesOnce(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	postID := newPost(t, st, owner)
	for i := 0; i < 5; i++ {
		_, err := st.InsertLike(ctx, store.NewID(), postID)
		require.NoError(t, err)
	}

	w := New(st, &appkafka.MockKafka{}, 4, 4)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostLiked, PostID: postID}))
		}()
	}
	wg.Wait()

	post, _ := st.GetPost(ctx, postID)
	assert.Equal(t, int64(5), post.Likes)
}

// ---------- Negative tests ----------

// Simulate Kafka read error
func TestWorker_KafkaReadError(t *testing.T) {
	mockKafka := &appkafka.MockKafkaFail{}
	w := New(store.NewMock(), mockKafka, 1, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, runWorkerOnce(ctx, w, mockKafka))
}

// Simulate invalid event JSON
func TestWorker_InvalidEventJSON(t *testing.T) {
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: []byte("{invalid-json}")}},
	}
	w := New(store.NewMock(), mockKafka, 1, 1)

	require.Error(t, runWorkerOnce(context.Background(), w, mockKafka))
}

// Simulate store failure while recounting
func TestWorker_StoreFail(t *testing.T) {
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{eventMessage(t, appkafka.Event{Type: appkafka.EventPostLiked, PostID: "p1"})},
	}
	w := New(store.NewFailingMock(), mockKafka, 1, 1)

	require.Error(t, runWorkerOnce(context.Background(), w, mockKafka))
}

func TestWorker_EmptyKafkaMessage(t *testing.T) {
	mockKafka := &appkafka.MockKafka{
		ReadMessages: []kafka.Message{{Value: nil}},
	}
	w := New(store.NewMock(), mockKafka, 1, 1)

	require.NoError(t, runWorkerOnce(context.Background(), w, mockKafka))
}

func TestWorker_EventWithoutIDs(t *testing.T) {
	w := New(store.NewMock(), &appkafka.MockKafka{}, 1, 1)
	ctx := context.Background()

	require.ErrorIs(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostLiked}), store.ErrInvalidArgument)
	require.ErrorIs(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventUserFollowed}), store.ErrInvalidArgument)
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: "something_else"}))
}

// liveLikeStore lands one like toggle at a chosen point of the worker's
// recount, the way a concurrent ToggleLike would.
type liveLikeStore struct {
	*store.MockStore
	postID     string
	liker      string
	counted    int
	rowOnly    bool // write the row during the count, leave the counter to the caller
	landedLike bool
}

func (s *liveLikeStore) CountLikes(ctx context.Context, postID string) (int64, error) {
	s.counted++
	if s.counted == 1 {
		if _, err := s.InsertLike(ctx, s.liker, s.postID); err != nil {
			return 0, err
		}
		if !s.rowOnly {
			if err := s.AddPostCounter(ctx, s.postID, store.CounterLikes, 1); err != nil {
				return 0, err
			}
		}
		s.landedLike = true
	}
	return s.MockStore.CountLikes(ctx, postID)
}

func TestWorker_ToggleDuringRecountNotDoubleCounted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	postID := newPost(t, st, owner)

	live := &liveLikeStore{MockStore: st, postID: postID, liker: store.NewID()}
	w := New(live, &appkafka.MockKafka{}, 1, 1)
	w.settle = func(context.Context) bool { return true }
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostLiked, PostID: postID}))

	require.True(t, live.landedLike)
	post, _ := st.GetPost(ctx, postID)
	assert.Equal(t, int64(1), post.Likes)
}

func TestWorker_PendingCounterWriteNotRepaired(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	postID := newPost(t, st, owner)

	live := &liveLikeStore{MockStore: st, postID: postID, liker: store.NewID(), rowOnly: true}
	w := New(live, &appkafka.MockKafka{}, 1, 1)
	// The in-flight toggle finishes its counter write while the worker settles.
	w.settle = func(ctx context.Context) bool {
		require.NoError(t, st.AddPostCounter(ctx, postID, store.CounterLikes, 1))
		return true
	}
	require.NoError(t, w.handle(ctx, appkafka.Event{Type: appkafka.EventPostLiked, PostID: postID}))

	post, _ := st.GetPost(ctx, postID)
	assert.Equal(t, int64(1), post.Likes)
}

func TestWorker_SettleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := store.NewMock()
	owner := newUser(t, st, "owner")
	postID := newPost(t, st, owner)
	require.NoError(t, st.AddPostCounter(ctx, postID, store.CounterLikes, 2))

	w := New(st, &appkafka.MockKafka{}, 1, 1)
	cancel()
	err := w.handle(ctx, appkafka.Event{Type: appkafka.EventPostUnliked, PostID: postID})
	require.ErrorIs(t, err, context.Canceled)

	post, _ := st.GetPost(context.Background(), postID)
	assert.Equal(t, int64(2), post.Likes)
}
