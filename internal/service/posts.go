package service

import (
	"context"
	"errors"
	"fmt"

	appkafka "example.com/snapgram/internal/broker"
	"example.com/snapgram/internal/filestore"
	"example.com/snapgram/internal/models"
	"example.com/snapgram/internal/store"
)

// GenerateUploadURL only needs a verified identity, not a provisioned user.
func (s *Service) GenerateUploadURL(ctx context.Context, p Principal) (filestore.UploadTarget, error) {
	if p == "" {
		return filestore.UploadTarget{}, store.ErrUnauthenticated
	}
	return s.files.GenerateUploadURL(ctx)
}

// CreatePost publishes the uploaded image under storageID and returns the new
// post id.
func (s *Service) CreatePost(ctx context.Context, p Principal, storageID, caption string) (string, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return "", err
	}
	url, err := s.files.GetURL(ctx, storageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("image %s: %w", storageID, store.ErrNotFound)
		}
		return "", err
	}

	post := models.Post{
		ID:        store.NewID(),
		UserID:    me.ID,
		ImageURL:  url,
		StorageID: storageID,
		Caption:   caption,
		Created:   s.now(),
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return "", fmt.Errorf("insert post: %w", err)
	}
	if err := s.store.AddUserCounter(ctx, me.ID, store.CounterPosts, 1); err != nil {
		return "", err
	}
	s.publish(ctx, appkafka.Event{Type: appkafka.EventPostCreated, ActorID: me.ID, PostID: post.ID})
	return post.ID, nil
}

// GetPosts returns the global timeline annotated for the caller.
func (s *Service) GetPosts(ctx context.Context, p Principal) ([]models.FeedPost, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return nil, err
	}
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	authors := make(map[string]models.PublicUser)
	res := make([]models.FeedPost, 0, len(posts))
	for _, post := range posts {
		author, ok := authors[post.UserID]
		if !ok {
			u, err := s.store.GetUserByID(ctx, post.UserID)
			if err != nil {
				return nil, err
			}
			if u != nil {
				author = models.PublicUser{ID: u.ID, Username: u.Username, Image: u.Image}
			}
			authors[post.UserID] = author
		}
		liked, err := s.store.HasLiked(ctx, me.ID, post.ID)
		if err != nil {
			return nil, err
		}
		saved, err := s.store.HasSaved(ctx, me.ID, post.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, models.FeedPost{Post: post, Author: author, IsLiked: liked, IsSaved: saved})
	}
	return res, nil
}

func (s *Service) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	return s.requirePost(ctx, id)
}

// GetPostsByUser lists userID's posts, or the caller's when userID is empty.
func (s *Service) GetPostsByUser(ctx context.Context, p Principal, userID string) ([]models.Post, error) {
	if userID == "" {
		me, err := s.GetAuthenticatedUser(ctx, p)
		if err != nil {
			return nil, err
		}
		userID = me.ID
	} else {
		u, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
		}
	}
	posts, err := s.store.ListPostsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// requireOwnPost loads postID and checks that the caller authored it.
func (s *Service) requireOwnPost(ctx context.Context, p Principal, postID string) (*models.User, *models.Post, error) {
	me, err := s.GetAuthenticatedUser(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.requirePost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post.UserID != me.ID {
		return nil, nil, fmt.Errorf("post %s: %w", postID, store.ErrForbidden)
	}
	return me, post, nil
}

func (s *Service) PatchPost(ctx context.Context, p Principal, postID, caption string) (*models.Post, error) {
	_, post, err := s.requireOwnPost(ctx, p, postID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateCaption(ctx, post.ID, caption); err != nil {
		return nil, fmt.Errorf("update caption: %w", err)
	}
	return s.requirePost(ctx, post.ID)
}

// DeletePost removes the post with every like, comment, save and
// notification that references it, plus the stored image.
func (s *Service) DeletePost(ctx context.Context, p Principal, postID string) error {
	me, post, err := s.requireOwnPost(ctx, p, postID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteLikesForPost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	if err := s.store.DeleteCommentsForPost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if err := s.store.DeleteSavesForPost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete saves: %w", err)
	}
	if err := s.store.DeleteNotificationsForPost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	if err := s.files.Delete(ctx, post.StorageID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete image: %w", err)
	}
	if err := s.store.DeletePost(ctx, *post); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	// Never below zero.
	if me.Posts > 0 {
		if err := s.store.AddUserCounter(ctx, me.ID, store.CounterPosts, -1); err != nil {
			return err
		}
	}
	s.publish(ctx, appkafka.Event{Type: appkafka.EventPostDeleted, ActorID: me.ID, PostID: post.ID})
	return nil
}
