// Package service holds the application's use cases. Handlers authorize the
// caller and validate payloads; services apply domain rules and talk to the
// store.
package service

import (
	"context"

	"culturetech/internal/middleware"
	"culturetech/internal/models"
	"culturetech/internal/notifications"
	"culturetech/internal/store"
)

type PostService struct {
	store    store.Store
	notifier *notifications.Notifier
}

type CreatePostInput struct {
	AuthorID uint
	Post     models.NewPost
}

func NewPostService(st store.Store, notifier *notifications.Notifier) *PostService {
	return &PostService{store: st, notifier: notifier}
}

func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (s *PostService) ListPostsByCategory(ctx context.Context, category models.Category) ([]*models.Post, error) {
	posts, err := s.store.ListPostsByCategory(ctx, category)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post, err := s.store.CreatePost(ctx, in.Post, in.AuthorID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.notifier.PublishEvent(ctx, notifications.EventPostCreated, map[string]any{
		"id":       post.ID,
		"title":    post.Title,
		"category": post.Category,
		"authorId": post.AuthorID,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish post event", "post_id", post.ID, "error", err)
	}

	return post, nil
}
