package server

import (
	"errors"
	"net/http"

	"example.com/snapgram/internal/middleware"
	"example.com/snapgram/internal/service"
	"example.com/snapgram/internal/store"
	"github.com/gin-gonic/gin"
)

// --- helpers ---

func principal(c *gin.Context) service.Principal {
	id, _ := middleware.IdentityFromContext(c)
	return service.Principal(id)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response. Internal errors are logged and hidden.
func fail(c *gin.Context, module string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logg.Error(module, "Request failed", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, module string, err error) {
	logg.Debug(module, "Invalid request body: "+err.Error())
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- users ---

func (s *Server) getMeHandler(c *gin.Context) {
	u, err := s.svc.GetAuthenticatedUser(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, "http/users", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// updateMeHandler expects JSON body: {"name": "...", "bio": "..."}
func (s *Server) updateMeHandler(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
		Bio  string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "http/users", err)
		return
	}
	if err := s.svc.UpdateUser(c.Request.Context(), principal(c), body.Name, body.Bio); err != nil {
		fail(c, "http/users", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getUserByIdentityHandler answers null when no user has the identity.
func (s *Server) getUserByIdentityHandler(c *gin.Context) {
	u, err := s.svc.GetUserByExternalID(c.Request.Context(), c.Param("identity"))
	if err != nil {
		fail(c, "http/users", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) getUserProfileHandler(c *gin.Context) {
	u, err := s.svc.GetUserProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "http/users", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) getMyPostsHandler(c *gin.Context) {
	s.listUserPosts(c, "")
}

func (s *Server) getUserPostsHandler(c *gin.Context) {
	s.listUserPosts(c, c.Param("id"))
}

func (s *Server) listUserPosts(c *gin.Context, userID string) {
	posts, err := s.svc.GetPostsByUser(c.Request.Context(), principal(c), userID)
	if err != nil {
		fail(c, "http/posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// --- follows ---

func (s *Server) isFollowingHandler(c *gin.Context) {
	ok, err := s.svc.IsFollowing(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, "http/follow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}

func (s *Server) toggleFollowHandler(c *gin.Context) {
	ok, err := s.svc.ToggleFollow(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, "http/follow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": ok})
}

// --- posts ---

func (s *Server) createUploadHandler(c *gin.Context) {
	target, err := s.svc.GenerateUploadURL(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, "http/uploads", err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// createPostHandler expects JSON body: {"storage_id": "...", "caption": "..."}
// Returns JSON response: {"post_id": <id>}
func (s *Server) createPostHandler(c *gin.Context) {
	var body struct {
		StorageID string `json:"storage_id" binding:"required"`
		Caption   string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "http/posts", err)
		return
	}
	id, err := s.svc.CreatePost(c.Request.Context(), principal(c), body.StorageID, body.Caption)
	if err != nil {
		fail(c, "http/posts", err)
		return
	}
	logg.Info("http/posts", "Post created with post_id="+id)
	c.JSON(http.StatusCreated, gin.H{"post_id": id})
}

func (s *Server) getPostsHandler(c *gin.Context) {
	posts, err := s.svc.GetPosts(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, "http/posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (s *Server) getPostHandler(c *gin.Context) {
	p, err := s.svc.GetPostByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "http/posts", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) patchPostHandler(c *gin.Context) {
	var body struct {
		Caption string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "http/posts", err)
		return
	}
	p, err := s.svc.PatchPost(c.Request.Context(), principal(c), c.Param("id"), body.Caption)
	if err != nil {
		fail(c, "http/posts", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePostHandler(c *gin.Context) {
	if err := s.svc.DeletePost(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		fail(c, "http/posts", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- engagement ---

func (s *Server) toggleLikeHandler(c *gin.Context) {
	liked, err := s.svc.ToggleLike(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, "http/likes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (s *Server) toggleSaveHandler(c *gin.Context) {
	saved, err := s.svc.ToggleSave(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		fail(c, "http/saves", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// getSavesHandler may return null entries for saved posts that were deleted.
func (s *Server) getSavesHandler(c *gin.Context) {
	posts, err := s.svc.GetSaves(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, "http/saves", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// --- comments ---

// addCommentHandler expects JSON body: {"content": "..."}
// Returns JSON response: {"comment_id": <id>}
func (s *Server) addCommentHandler(c *gin.Context) {
	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "http/comments", err)
		return
	}
	id, err := s.svc.AddComment(c.Request.Context(), principal(c), c.Param("id"), body.Content)
	if err != nil {
		fail(c, "http/comments", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment_id": id})
}

func (s *Server) getCommentsHandler(c *gin.Context) {
	comments, err := s.svc.GetComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, "http/comments", err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// --- notifications ---

func (s *Server) getNotificationsHandler(c *gin.Context) {
	list, err := s.svc.GetNotifications(c.Request.Context(), principal(c))
	if err != nil {
		fail(c, "http/notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}
