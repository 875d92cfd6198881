// Package webhook receives identity-provider events signed with svix.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"example.com/snapgram/internal/logger"
	"example.com/snapgram/internal/service"
	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
)

var logg = logger.New()

const maxPayloadBytes = 1 << 20

var errMissingSecret = errors.New("missing CLERK_WEBHOOK_SECRET environment variable")

// UserCreator provisions users from verified sign-up events.
type UserCreator interface {
	CreateUser(ctx context.Context, nu service.NewUser) error
}

type Handler struct {
	users    UserCreator
	verifier *svix.Webhook
}

// NewHandler builds a handler verifying payloads with the whsec_ secret. With
// an empty secret every delivery is answered 500 so the sender retries once
// the deployment is fixed.
func NewHandler(users UserCreator, secret string) (*Handler, error) {
	if secret == "" {
		return &Handler{users: users}, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	return &Handler{users: users, verifier: wh}, nil
}

type clerkEvent struct {
	Type string    `json:"type"`
	Data clerkUser `json:"data"`
}

type clerkUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Handle serves POST /clerk-webhook.
func (h *Handler) Handle(c *gin.Context) {
	if h.verifier == nil {
		logg.Error("webhook", "Rejected webhook delivery", errMissingSecret)
		c.String(http.StatusInternalServerError, errMissingSecret.Error())
		return
	}

	for _, hdr := range []string{"svix-id", "svix-signature", "svix-timestamp"} {
		if c.GetHeader(hdr) == "" {
			c.String(http.StatusBadRequest, "Error - no svix headers")
			return
		}
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.String(http.StatusBadRequest, "Error")
		return
	}
	if err := h.verifier.Verify(payload, c.Request.Header); err != nil {
		logg.Error("webhook", "Error verifying webhook", err)
		c.String(http.StatusBadRequest, "Error")
		return
	}

	var ev clerkEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logg.Error("webhook", "Invalid webhook payload", err)
		c.String(http.StatusBadRequest, "Error")
		return
	}

	if ev.Type == "user.created" {
		nu, ok := newUserFromClerk(ev.Data)
		if !ok {
			c.String(http.StatusBadRequest, "Error - no email address")
			return
		}
		if err := h.users.CreateUser(c.Request.Context(), nu); err != nil {
			logg.Error("webhook", "Error creating user", err)
			c.String(http.StatusInternalServerError, "Error creating user")
			return
		}
	}

	c.String(http.StatusOK, "Webhook processed correctly!")
}

func newUserFromClerk(u clerkUser) (service.NewUser, bool) {
	if len(u.EmailAddresses) == 0 || u.EmailAddresses[0].EmailAddress == "" {
		return service.NewUser{}, false
	}
	email := u.EmailAddresses[0].EmailAddress
	username, _, _ := strings.Cut(email, "@")
	return service.NewUser{
		ClerkID:  u.ID,
		Username: username,
		Name:     strings.TrimSpace(u.FirstName + " " + u.LastName),
		Image:    u.ImageURL,
		Email:    email,
	}, true
}
