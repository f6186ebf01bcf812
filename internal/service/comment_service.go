package service

import (
	"context"

	"culturetech/internal/featureflags"
	"culturetech/internal/middleware"
	"culturetech/internal/models"
	"culturetech/internal/notifications"
	"culturetech/internal/store"
)

type CommentService struct {
	store    store.Store
	flags    *featureflags.Manager
	notifier *notifications.Notifier
}

type CreateCommentInput struct {
	AuthorID uint
	PostID   uint
	Content  string
}

func NewCommentService(st store.Store, flags *featureflags.Manager, notifier *notifications.Notifier) *CommentService {
	return &CommentService{store: st, flags: flags, notifier: notifier}
}

// ListComments returns the comments of a post in creation order. Unknown
// posts simply have no comments.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments, err := s.store.ListCommentsByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if s.flags.Enabled(featureflags.CommentPostCheck, in.AuthorID) {
		post, err := s.store.GetPost(ctx, in.PostID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if post == nil {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
	}

	comment, err := s.store.CreateComment(ctx, models.NewComment{Content: in.Content}, in.PostID, in.AuthorID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.notifier.PublishEvent(ctx, notifications.EventCommentCreated, map[string]any{
		"id":       comment.ID,
		"postId":   comment.PostID,
		"authorId": comment.AuthorID,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish comment event", "comment_id", comment.ID, "error", err)
	}

	return comment, nil
}
