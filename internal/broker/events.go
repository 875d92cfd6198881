package appkafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventType names an activity event. It is also the Kafka message key.
type EventType string

const (
	EventPostCreated    EventType = "post_created"
	EventPostDeleted    EventType = "post_deleted"
	EventPostLiked      EventType = "post_liked"
	EventPostUnliked    EventType = "post_unliked"
	EventCommentAdded   EventType = "comment_added"
	EventUserFollowed   EventType = "user_followed"
	EventUserUnfollowed EventType = "user_unfollowed"
)

// Event is published after a mutation commits. ActorID is the user that acted,
// UserID the owner of the post (post events) and TargetID the followed user
// (follow events).
type Event struct {
	Type     EventType `json:"type"`
	ActorID  string    `json:"actor_id"`
	UserID   string    `json:"user_id,omitempty"`
	PostID   string    `json:"post_id,omitempty"`
	TargetID string    `json:"target_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher publishes activity events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// EventPublisher writes events to Kafka as JSON.
type EventPublisher struct {
	writer KafkaWriter
}

func NewEventPublisher(w KafkaWriter) *EventPublisher {
	return &EventPublisher{writer: w}
}

func (p *EventPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: data,
	})
}

// DecodeEvent parses a message value written by EventPublisher.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
