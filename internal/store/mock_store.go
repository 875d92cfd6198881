package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"example.com/snapgram/internal/models"
)

var errMockFail = errors.New("mock: store failure")

type pair struct{ a, b string }

// MockStore simulates Cassandra operations for testing.
type MockStore struct {
	mu sync.Mutex

	Users         map[string]models.User
	ClerkIndex    map[string]string
	UserCounters  map[string]map[UserCounter]int64
	Follows       map[pair]bool
	Posts         map[string]models.Post
	PostCounters  map[string]map[PostCounter]int64
	Likes         map[pair]bool
	Saves         map[pair]models.Save
	Comments      map[string]models.Comment
	Notifications map[string]models.Notification
	ShouldFail    bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users:         make(map[string]models.User),
		ClerkIndex:    make(map[string]string),
		UserCounters:  make(map[string]map[UserCounter]int64),
		Follows:       make(map[pair]bool),
		Posts:         make(map[string]models.Post),
		PostCounters:  make(map[string]map[PostCounter]int64),
		Likes:         make(map[pair]bool),
		Saves:         make(map[pair]models.Save),
		Comments:      make(map[string]models.Comment),
		Notifications: make(map[string]models.Notification),
	}
}

// NewFailingMock returns a mock whose every call fails.
func NewFailingMock() *MockStore {
	m := NewMock()
	m.ShouldFail = true
	return m
}

func (m *MockStore) Close() {}

func (m *MockStore) fail() error {
	if m.ShouldFail {
		return errMockFail
	}
	return nil
}

// --- users ---

func (m *MockStore) CreateUser(_ context.Context, u models.User) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return "", false, err
	}
	if id, ok := m.ClerkIndex[u.ClerkID]; ok {
		return id, false, nil
	}
	if u.ID == "" {
		u.ID = NewID()
	}
	u.Followers, u.Following, u.Posts = 0, 0, 0
	m.Users[u.ID] = u
	m.ClerkIndex[u.ClerkID] = u.ID
	return u.ID, true, nil
}

func (m *MockStore) userLocked(id string) *models.User {
	u, ok := m.Users[id]
	if !ok {
		return nil
	}
	c := m.UserCounters[id]
	u.Followers = c[CounterFollowers]
	u.Following = c[CounterFollowing]
	u.Posts = c[CounterPosts]
	return &u
}

func (m *MockStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.userLocked(id), nil
}

func (m *MockStore) GetUserByClerkID(_ context.Context, clerkID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	id, ok := m.ClerkIndex[clerkID]
	if !ok {
		return nil, nil
	}
	return m.userLocked(id), nil
}

func (m *MockStore) UpdateUser(_ context.Context, id, name, bio string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil
	}
	u.Name, u.Bio = name, bio
	m.Users[id] = u
	return nil
}

func (m *MockStore) AddUserCounter(_ context.Context, userID string, c UserCounter, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.UserCounters[userID] == nil {
		m.UserCounters[userID] = make(map[UserCounter]int64)
	}
	m.UserCounters[userID][c] += delta
	return nil
}

// --- follows ---

func (m *MockStore) InsertFollow(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{followerID, followingID}
	if m.Follows[k] {
		return false, nil
	}
	m.Follows[k] = true
	return true, nil
}

func (m *MockStore) DeleteFollow(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{followerID, followingID}
	if !m.Follows[k] {
		return false, nil
	}
	delete(m.Follows, k)
	return true, nil
}

func (m *MockStore) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	return m.Follows[pair{followerID, followingID}], nil
}

func (m *MockStore) CountFollowers(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	var n int64
	for k := range m.Follows {
		if k.b == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) CountFollowing(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	var n int64
	for k := range m.Follows {
		if k.a == userID {
			n++
		}
	}
	return n, nil
}

// --- posts ---

func (m *MockStore) InsertPost(_ context.Context, p models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	p.Likes, p.Comments = 0, 0
	m.Posts[p.ID] = p
	return nil
}

func (m *MockStore) postLocked(id string) *models.Post {
	p, ok := m.Posts[id]
	if !ok {
		return nil
	}
	c := m.PostCounters[id]
	p.Likes = c[CounterLikes]
	p.Comments = c[CounterComments]
	return &p
}

func (m *MockStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.postLocked(id), nil
}

func (m *MockStore) listPostsLocked(keep func(models.Post) bool) []models.Post {
	var res []models.Post
	for id, p := range m.Posts {
		if keep(p) {
			res = append(res, *m.postLocked(id))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Created.Equal(res[j].Created) {
			return res[i].Created.After(res[j].Created)
		}
		return res[i].ID > res[j].ID
	})
	return res
}

func (m *MockStore) ListPosts(_ context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.listPostsLocked(func(models.Post) bool { return true }), nil
}

func (m *MockStore) ListPostsByUser(_ context.Context, userID string) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	return m.listPostsLocked(func(p models.Post) bool { return p.UserID == userID }), nil
}

func (m *MockStore) UpdateCaption(_ context.Context, postID, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	p, ok := m.Posts[postID]
	if !ok {
		return nil
	}
	p.Caption = caption
	m.Posts[postID] = p
	return nil
}

func (m *MockStore) DeletePost(_ context.Context, p models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	delete(m.Posts, p.ID)
	delete(m.PostCounters, p.ID)
	return nil
}

func (m *MockStore) CountPostsByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	var n int64
	for _, p := range m.Posts {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) AddPostCounter(_ context.Context, postID string, c PostCounter, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.PostCounters[postID] == nil {
		m.PostCounters[postID] = make(map[PostCounter]int64)
	}
	m.PostCounters[postID][c] += delta
	return nil
}

// --- likes ---

func (m *MockStore) InsertLike(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{userID, postID}
	if m.Likes[k] {
		return false, nil
	}
	m.Likes[k] = true
	return true, nil
}

func (m *MockStore) DeleteLike(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{userID, postID}
	if !m.Likes[k] {
		return false, nil
	}
	delete(m.Likes, k)
	return true, nil
}

func (m *MockStore) HasLiked(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	return m.Likes[pair{userID, postID}], nil
}

func (m *MockStore) CountLikes(_ context.Context, postID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	var n int64
	for k := range m.Likes {
		if k.b == postID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) DeleteLikesForPost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for k := range m.Likes {
		if k.b == postID {
			delete(m.Likes, k)
		}
	}
	return nil
}

// --- saves ---

func (m *MockStore) InsertSave(_ context.Context, s models.Save) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{s.UserID, s.PostID}
	if _, ok := m.Saves[k]; ok {
		return false, nil
	}
	m.Saves[k] = s
	return true, nil
}

func (m *MockStore) DeleteSave(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	k := pair{userID, postID}
	if _, ok := m.Saves[k]; !ok {
		return false, nil
	}
	delete(m.Saves, k)
	return true, nil
}

func (m *MockStore) HasSaved(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return false, err
	}
	_, ok := m.Saves[pair{userID, postID}]
	return ok, nil
}

func (m *MockStore) ListSaves(_ context.Context, userID string) ([]models.Save, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Save
	for k, s := range m.Saves {
		if k.a == userID {
			res = append(res, s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Saved.Equal(res[j].Saved) {
			return res[i].Saved.After(res[j].Saved)
		}
		return res[i].PostID > res[j].PostID
	})
	return res, nil
}

func (m *MockStore) DeleteSavesForPost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for k := range m.Saves {
		if k.b == postID {
			delete(m.Saves, k)
		}
	}
	return nil
}

// --- comments ---

func (m *MockStore) InsertComment(_ context.Context, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Comments[c.ID] = c
	return nil
}

func (m *MockStore) GetComment(_ context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MockStore) ListComments(_ context.Context, postID string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Comment
	for _, c := range m.Comments {
		if c.PostID == postID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Created.Equal(res[j].Created) {
			return res[i].Created.Before(res[j].Created)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *MockStore) CountComments(_ context.Context, postID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range m.Comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) DeleteCommentsForPost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for id, c := range m.Comments {
		if c.PostID == postID {
			delete(m.Comments, id)
		}
	}
	return nil
}

// --- notifications ---

func (m *MockStore) InsertNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.Notifications[n.ID] = n
	return nil
}

func (m *MockStore) ListNotifications(_ context.Context, receiverID string) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return nil, err
	}
	var res []models.Notification
	for _, n := range m.Notifications {
		if n.ReceiverID == receiverID {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Created.Equal(res[j].Created) {
			return res[i].Created.After(res[j].Created)
		}
		return res[i].ID > res[j].ID
	})
	return res, nil
}

func (m *MockStore) DeleteNotificationsForPost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	for id, n := range m.Notifications {
		if n.PostID == postID {
			delete(m.Notifications, id)
		}
	}
	return nil
}
