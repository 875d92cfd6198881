package models

import "time"

// NotificationType is the kind of action that produced a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
)

type User struct {
	ID        string `json:"id"`
	ClerkID   string `json:"clerk_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Image     string `json:"image"`
	Bio       string `json:"bio,omitempty"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
	Posts     int64  `json:"posts"`
}

// PublicUser is the subset of a user shown next to content they authored.
type PublicUser struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ImageURL  string    `json:"image_url"`
	StorageID string    `json:"storage_id"`
	Caption   string    `json:"caption,omitempty"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Created   time.Time `json:"created"`
}

// FeedPost is a post annotated for the user who requested it.
type FeedPost struct {
	Post
	Author  PublicUser `json:"author"`
	IsLiked bool       `json:"is_liked"`
	IsSaved bool       `json:"is_saved"`
}

type Comment struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	PostID  string    `json:"post_id"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

type CommentWithUser struct {
	Comment
	User PublicUser `json:"user"`
}

type Like struct {
	UserID string `json:"user_id"`
	PostID string `json:"post_id"`
}

type Save struct {
	UserID string    `json:"user_id"`
	PostID string    `json:"post_id"`
	Saved  time.Time `json:"saved"`
}

type Follow struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

type Notification struct {
	ID         string           `json:"id"`
	ReceiverID string           `json:"receiver_id"`
	SenderID   string           `json:"sender_id"`
	Type       NotificationType `json:"type"`
	PostID     string           `json:"post_id,omitempty"`
	CommentID  string           `json:"comment_id,omitempty"`
	Created    time.Time        `json:"created"`
}

// NotificationInfo is a notification joined with the sender, post and comment
// it refers to.
type NotificationInfo struct {
	Notification
	Sender  PublicUser `json:"sender"`
	Post    *Post      `json:"post"`
	Comment string     `json:"comment,omitempty"`
}
