package service

import (
	"context"
	"testing"
	"time"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/filestore"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	st    *store.MockStore
	files *filestore.MockFileStore
	kafka *appkafka.MockKafka
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:    store.NewMock(),
		files: filestore.NewMock(),
		kafka: &appkafka.MockKafka{},
	}
	f.svc = New(f.st, f.files, appkafka.NewEventPublisher(f.kafka))

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var tick time.Duration
	f.svc.SetClock(func() time.Time {
		tick += time.Millisecond
		return base.Add(tick)
	})
	return f
}

func (f *fixture) user(t *testing.T, clerkID string) (*models.User, Principal) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.CreateUser(ctx, NewUser{
		ClerkID:  clerkID,
		Username: clerkID,
		Name:     "User " + clerkID,
		Image:    "https://img.example.test/" + clerkID,
		Email:    clerkID + "@example.com",
	}))
	u, err := f.svc.GetAuthenticatedUser(ctx, Principal(clerkID))
	require.NoError(t, err)
	return u, Principal(clerkID)
}

func (f *fixture) post(t *testing.T, p Principal, caption string) string {
	t.Helper()
	id, err := f.svc.CreatePost(context.Background(), p, f.files.Put(), caption)
	require.NoError(t, err)
	return id
}

func (f *fixture) notificationsFor(receiverID string) []models.Notification {
	var res []models.Notification
	for _, n := range f.st.Notifications {
		if n.ReceiverID == receiverID {
			res = append(res, n)
		}
	}
	return res
}

func (f *fixture) eventTypes() []appkafka.EventType {
	var res []appkafka.EventType
	for _, ev := range f.kafka.Events() {
		res = append(res, ev.Type)
	}
	return res
}

func TestGetAuthenticatedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetAuthenticatedUser(ctx, "")
	require.ErrorIs(t, err, store.ErrUnauthenticated)

	_, err = f.svc.GetAuthenticatedUser(ctx, "user_missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	u, p := f.user(t, "user_a")
	got, err := f.svc.GetAuthenticatedUser(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "user_a", got.ClerkID)
}

func TestCreateUser_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nu := NewUser{ClerkID: "user_a", Username: "alice", Name: "Alice", Email: "alice@example.com"}

	require.NoError(t, f.svc.CreateUser(ctx, nu))
	require.NoError(t, f.svc.CreateUser(ctx, nu))
	require.Len(t, f.st.Users, 1)

	u, err := f.svc.GetUserByExternalID(ctx, "user_a")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Zero(t, u.Followers)
	assert.Zero(t, u.Following)
	assert.Zero(t, u.Posts)

	require.ErrorIs(t, f.svc.CreateUser(ctx, NewUser{}), store.ErrInvalidArgument)
}

func TestCreateUser_StoreFailure(t *testing.T) {
	svc := New(store.NewFailingMock(), filestore.NewMock(), nil)
	err := svc.CreateUser(context.Background(), NewUser{ClerkID: "user_a"})
	require.Error(t, err)
}

func TestUserLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, p := f.user(t, "user_a")

	missing, err := f.svc.GetUserByExternalID(ctx, "user_nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = f.svc.GetUserProfile(ctx, "no-such-id")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, f.svc.UpdateUser(ctx, p, "Alice Doe", "hello"))
	got, err := f.svc.GetUserProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Doe", got.Name)
	assert.Equal(t, "hello", got.Bio)

	require.ErrorIs(t, f.svc.UpdateUser(ctx, "", "x", ""), store.ErrUnauthenticated)
}

func TestToggleFollow_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	b, _ := f.user(t, "user_b")

	following, err := f.svc.ToggleFollow(ctx, pa, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	is, err := f.svc.IsFollowing(ctx, pa, b.ID)
	require.NoError(t, err)
	assert.True(t, is)

	a, _ = f.svc.GetUserProfile(ctx, a.ID)
	b, _ = f.svc.GetUserProfile(ctx, b.ID)
	assert.Equal(t, int64(1), a.Following)
	assert.Equal(t, int64(1), b.Followers)

	notes := f.notificationsFor(b.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationFollow, notes[0].Type)
	assert.Equal(t, a.ID, notes[0].SenderID)
	assert.Empty(t, notes[0].PostID)

	following, err = f.svc.ToggleFollow(ctx, pa, b.ID)
	require.NoError(t, err)
	assert.False(t, following)

	a, _ = f.svc.GetUserProfile(ctx, a.ID)
	b, _ = f.svc.GetUserProfile(ctx, b.ID)
	assert.Zero(t, a.Following)
	assert.Zero(t, b.Followers)
	assert.Len(t, f.notificationsFor(b.ID), 1, "unfollow does not remove the notification")

	assert.Equal(t, []appkafka.EventType{appkafka.EventUserFollowed, appkafka.EventUserUnfollowed}, f.eventTypes())
}

func TestToggleFollow_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")

	_, err := f.svc.ToggleFollow(ctx, pa, a.ID)
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = f.svc.ToggleFollow(ctx, pa, "no-such-user")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.svc.ToggleFollow(ctx, "", a.ID)
	require.ErrorIs(t, err, store.ErrUnauthenticated)

	assert.Empty(t, f.st.Follows)
	assert.Empty(t, f.st.Notifications)
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")

	_, err := f.svc.CreatePost(ctx, pa, "uploads/missing", "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.Empty(t, f.st.Posts)

	storageID := f.files.Put()
	id, err := f.svc.CreatePost(ctx, pa, storageID, "sunset")
	require.NoError(t, err)

	post, err := f.svc.GetPostByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a.ID, post.UserID)
	assert.Equal(t, "https://cdn.example.test/"+storageID, post.ImageURL)
	assert.Equal(t, "sunset", post.Caption)
	assert.Zero(t, post.Likes)
	assert.Zero(t, post.Comments)

	a, _ = f.svc.GetUserProfile(ctx, a.ID)
	assert.Equal(t, int64(1), a.Posts)

	_, err = f.svc.GetPostByID(ctx, "no-such-post")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateUploadURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GenerateUploadURL(ctx, "")
	require.ErrorIs(t, err, store.ErrUnauthenticated)

	// A provisioned user row is not required.
	target, err := f.svc.GenerateUploadURL(ctx, "user_unprovisioned")
	require.NoError(t, err)
	assert.NotEmpty(t, target.StorageID)
	assert.NotEmpty(t, target.URL)
}

func TestGetPosts_Annotated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")

	first := f.post(t, pa, "first")
	second := f.post(t, pa, "second")

	_, err := f.svc.ToggleLike(ctx, pb, first)
	require.NoError(t, err)
	_, err = f.svc.ToggleSave(ctx, pb, second)
	require.NoError(t, err)

	feed, err := f.svc.GetPosts(ctx, pb)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	assert.Equal(t, second, feed[0].ID, "newest first")
	assert.False(t, feed[0].IsLiked)
	assert.True(t, feed[0].IsSaved)

	assert.Equal(t, first, feed[1].ID)
	assert.True(t, feed[1].IsLiked)
	assert.False(t, feed[1].IsSaved)
	assert.Equal(t, int64(1), feed[1].Likes)

	assert.Equal(t, a.ID, feed[1].Author.ID)
	assert.Equal(t, "user_a", feed[1].Author.Username)
	assert.Equal(t, a.Image, feed[1].Author.Image)
}

func TestGetPostsByUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")
	f.post(t, pa, "a1")
	f.post(t, pa, "a2")
	f.post(t, pb, "b1")

	mine, err := f.svc.GetPostsByUser(ctx, pa, "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.svc.GetPostsByUser(ctx, pb, a.ID)
	require.NoError(t, err)
	assert.Len(t, theirs, 2)
	for _, p := range theirs {
		assert.Equal(t, a.ID, p.UserID)
	}

	_, err = f.svc.GetPostsByUser(ctx, pa, "no-such-user")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPatchPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")
	id := f.post(t, pa, "before")

	_, err := f.svc.PatchPost(ctx, pb, id, "hijacked")
	require.ErrorIs(t, err, store.ErrForbidden)
	post, _ := f.svc.GetPostByID(ctx, id)
	assert.Equal(t, "before", post.Caption)

	_, err = f.svc.PatchPost(ctx, pa, "no-such-post", "x")
	require.ErrorIs(t, err, store.ErrNotFound)

	updated, err := f.svc.PatchPost(ctx, pa, id, "after")
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Caption)
}

func TestDeletePost_Cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")
	id := f.post(t, pa, "doomed")
	keep := f.post(t, pa, "kept")
	post, _ := f.svc.GetPostByID(ctx, id)

	_, err := f.svc.ToggleLike(ctx, pb, id)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pb, id, "nice")
	require.NoError(t, err)
	_, err = f.svc.ToggleSave(ctx, pb, id)
	require.NoError(t, err)
	_, err = f.svc.ToggleLike(ctx, pb, keep)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.DeletePost(ctx, pb, id), store.ErrForbidden)
	_, err = f.svc.GetPostByID(ctx, id)
	require.NoError(t, err, "non-owner delete leaves the post")

	require.NoError(t, f.svc.DeletePost(ctx, pa, id))

	_, err = f.svc.GetPostByID(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
	likes, _ := f.st.CountLikes(ctx, id)
	assert.Zero(t, likes)
	comments, _ := f.st.ListComments(ctx, id)
	assert.Empty(t, comments)
	for _, sv := range f.st.Saves {
		assert.NotEqual(t, id, sv.PostID)
	}
	for _, n := range f.st.Notifications {
		assert.NotEqual(t, id, n.PostID)
	}
	assert.Contains(t, f.files.Deleted, post.StorageID)

	// The other post and its like survive.
	likes, _ = f.st.CountLikes(ctx, keep)
	assert.Equal(t, int64(1), likes)

	a, _ = f.svc.GetUserProfile(ctx, a.ID)
	assert.Equal(t, int64(1), a.Posts)

	require.ErrorIs(t, f.svc.DeletePost(ctx, pa, id), store.ErrNotFound)
}

func TestDeletePost_PostsCounterFloor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	id := f.post(t, pa, "x")

	// Counter already drifted to zero.
	require.NoError(t, f.st.AddUserCounter(ctx, a.ID, store.CounterPosts, -1))

	require.NoError(t, f.svc.DeletePost(ctx, pa, id))
	a, _ = f.svc.GetUserProfile(ctx, a.ID)
	assert.Zero(t, a.Posts)
}

func TestToggleLike_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	b, pb := f.user(t, "user_b")
	id := f.post(t, pa, "p")

	liked, err := f.svc.ToggleLike(ctx, pb, id)
	require.NoError(t, err)
	assert.True(t, liked)

	post, _ := f.svc.GetPostByID(ctx, id)
	assert.Equal(t, int64(1), post.Likes)

	notes := f.notificationsFor(a.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationLike, notes[0].Type)
	assert.Equal(t, b.ID, notes[0].SenderID)
	assert.Equal(t, id, notes[0].PostID)

	liked, err = f.svc.ToggleLike(ctx, pb, id)
	require.NoError(t, err)
	assert.False(t, liked)

	post, _ = f.svc.GetPostByID(ctx, id)
	assert.Zero(t, post.Likes)
	assert.Len(t, f.notificationsFor(a.ID), 1)
}

func TestToggleLike_CounterMatchesRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, owner := f.user(t, "owner")
	id := f.post(t, owner, "p")

	var likers []Principal
	for _, c := range []string{"u1", "u2", "u3", "u4"} {
		_, p := f.user(t, c)
		likers = append(likers, p)
	}
	for i, p := range likers {
		_, err := f.svc.ToggleLike(ctx, p, id)
		require.NoError(t, err)
		if i%2 == 1 {
			_, err = f.svc.ToggleLike(ctx, p, id)
			require.NoError(t, err)
		}
	}
	// Owner liking their own post gets no notification.
	_, err := f.svc.ToggleLike(ctx, owner, id)
	require.NoError(t, err)

	rows, err := f.st.CountLikes(ctx, id)
	require.NoError(t, err)
	post, _ := f.svc.GetPostByID(ctx, id)
	assert.Equal(t, int64(3), rows)
	assert.Equal(t, rows, post.Likes)

	for _, n := range f.st.Notifications {
		assert.NotEqual(t, n.SenderID, n.ReceiverID)
	}
}

func TestToggleLike_MissingPost(t *testing.T) {
	f := newFixture(t)
	_, pa := f.user(t, "user_a")
	_, err := f.svc.ToggleLike(context.Background(), pa, "no-such-post")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.st.Likes)
}

func TestToggleLike_PublishFailureIgnored(t *testing.T) {
	f := newFixture(t)
	_, pa := f.user(t, "user_a")
	id := f.post(t, pa, "p")
	f.kafka.ShouldFail = true

	liked, err := f.svc.ToggleLike(context.Background(), pa, id)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	b, pb := f.user(t, "user_b")
	id := f.post(t, pa, "p")

	_, err := f.svc.AddComment(ctx, pb, "no-such-post", "hi")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.st.Comments)
	assert.Empty(t, f.st.Notifications)

	_, err = f.svc.AddComment(ctx, pb, id, "   ")
	require.ErrorIs(t, err, store.ErrInvalidArgument)

	cid, err := f.svc.AddComment(ctx, pb, id, "first!")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pa, id, "thanks")
	require.NoError(t, err)

	post, _ := f.svc.GetPostByID(ctx, id)
	assert.Equal(t, int64(2), post.Comments)

	notes := f.notificationsFor(a.ID)
	require.Len(t, notes, 1, "owner's own comment does not notify")
	assert.Equal(t, models.NotificationComment, notes[0].Type)
	assert.Equal(t, cid, notes[0].CommentID)

	comments, err := f.svc.GetComments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first!", comments[0].Content)
	assert.Equal(t, b.Name, comments[0].User.Name)
	assert.Equal(t, b.Image, comments[0].User.Image)
	assert.Equal(t, "thanks", comments[1].Content)
}

func TestToggleSave_GetSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")
	p1 := f.post(t, pa, "one")
	p2 := f.post(t, pa, "two")
	p3 := f.post(t, pa, "three")

	for _, id := range []string{p1, p2, p3} {
		saved, err := f.svc.ToggleSave(ctx, pb, id)
		require.NoError(t, err)
		assert.True(t, saved)
	}
	saved, err := f.svc.ToggleSave(ctx, pb, p2)
	require.NoError(t, err)
	assert.False(t, saved)

	_, err = f.svc.ToggleSave(ctx, pb, "no-such-post")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Remove p1 behind the cascade's back so its save dangles.
	post, _ := f.st.GetPost(ctx, p1)
	require.NoError(t, f.st.DeletePost(ctx, *post))

	saves, err := f.svc.GetSaves(ctx, pb)
	require.NoError(t, err)
	require.Len(t, saves, 2)
	require.NotNil(t, saves[0])
	assert.Equal(t, p3, saves[0].ID, "most recent save first")
	assert.Nil(t, saves[1])
}

func TestGetNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	b, pb := f.user(t, "user_b")
	id := f.post(t, pa, "p")

	_, err := f.svc.ToggleFollow(ctx, pb, a.ID)
	require.NoError(t, err)
	_, err = f.svc.ToggleLike(ctx, pb, id)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pb, id, "great shot")
	require.NoError(t, err)

	list, err := f.svc.GetNotifications(ctx, pa)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, models.NotificationComment, list[0].Type, "newest first")
	assert.Equal(t, "great shot", list[0].Comment)
	require.NotNil(t, list[0].Post)
	assert.Equal(t, id, list[0].Post.ID)

	assert.Equal(t, models.NotificationLike, list[1].Type)
	assert.Empty(t, list[1].Comment)

	assert.Equal(t, models.NotificationFollow, list[2].Type)
	assert.Nil(t, list[2].Post)

	for _, n := range list {
		assert.Equal(t, b.ID, n.Sender.ID)
		assert.Equal(t, b.Username, n.Sender.Username)
		assert.Equal(t, b.Image, n.Sender.Image)
	}

	empty, err := f.svc.GetNotifications(ctx, pb)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEvents_Published(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pa := f.user(t, "user_a")
	_, pb := f.user(t, "user_b")
	id := f.post(t, pa, "p")

	_, err := f.svc.ToggleLike(ctx, pb, id)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pb, id, "hi")
	require.NoError(t, err)
	require.NoError(t, f.svc.DeletePost(ctx, pa, id))

	assert.Equal(t, []appkafka.EventType{
		appkafka.EventPostCreated,
		appkafka.EventPostLiked,
		appkafka.EventCommentAdded,
		appkafka.EventPostDeleted,
	}, f.eventTypes())

	evs := f.kafka.Events()
	assert.Equal(t, a.ID, evs[1].UserID)
	assert.Equal(t, id, evs[1].PostID)
	assert.False(t, evs[1].At.IsZero())
}
