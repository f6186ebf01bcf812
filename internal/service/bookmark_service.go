package service

import (
	"context"

	"culturetech/internal/featureflags"
	"culturetech/internal/models"
	"culturetech/internal/store"
)

// BookmarkService manages a user's own bookmarks. Every method is scoped to
// the given user id.
type BookmarkService struct {
	store store.Store
	flags *featureflags.Manager
}

func NewBookmarkService(st store.Store, flags *featureflags.Manager) *BookmarkService {
	return &BookmarkService{store: st, flags: flags}
}

// CreateBookmark saves postID for userID. created is false only when
// deduplication is enabled and an equal bookmark already existed.
func (s *BookmarkService) CreateBookmark(ctx context.Context, userID, postID uint) (bookmark *models.Bookmark, created bool, err error) {
	if s.flags.Enabled(featureflags.BookmarkDedupe, userID) {
		existing, err := s.store.FindBookmark(ctx, userID, postID)
		if err != nil {
			return nil, false, models.NewInternalError(err)
		}
		if existing != nil {
			return existing, false, nil
		}
	}

	bookmark, err = s.store.CreateBookmark(ctx, userID, postID)
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}
	return bookmark, true, nil
}

// DeleteBookmark removes one bookmark of postID for userID. Removing a
// bookmark that does not exist succeeds.
func (s *BookmarkService) DeleteBookmark(ctx context.Context, userID, postID uint) error {
	if err := s.store.DeleteBookmark(ctx, userID, postID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *BookmarkService) ListBookmarks(ctx context.Context, userID uint) ([]*models.Bookmark, error) {
	bookmarks, err := s.store.ListBookmarksByUser(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return bookmarks, nil
}
