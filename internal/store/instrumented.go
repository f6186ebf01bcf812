package store

import (
	"context"
	"time"

	"culturetech/internal/models"
	"culturetech/internal/observability"
)

var _ Store = (*Instrumented)(nil)

// Instrumented decorates a Store with a span and Prometheus metrics per call.
type Instrumented struct {
	next    Store
	backend string
}

// Instrument wraps next. backend labels metrics and spans ("memory",
// "postgres", "sqlite").
func Instrument(next Store, backend string) *Instrumented {
	return &Instrumented{next: next, backend: backend}
}

func (s *Instrumented) start(ctx context.Context, op, entity string) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := observability.StartStoreSpan(ctx, s.backend, op, entity)
	return ctx, func(err error) {
		observability.ObserveStore(s.backend, op, begin, err)
		observability.EndSpan(span, err)
	}
}

func (s *Instrumented) CreateUser(ctx context.Context, in models.NewUser) (*models.User, error) {
	ctx, done := s.start(ctx, "create_user", "users")
	u, err := s.next.CreateUser(ctx, in)
	done(err)
	return u, err
}

func (s *Instrumented) GetUser(ctx context.Context, id uint) (*models.User, error) {
	ctx, done := s.start(ctx, "get_user", "users")
	u, err := s.next.GetUser(ctx, id)
	done(err)
	return u, err
}

func (s *Instrumented) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, done := s.start(ctx, "get_user_by_username", "users")
	u, err := s.next.GetUserByUsername(ctx, username)
	done(err)
	return u, err
}

func (s *Instrumented) SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error) {
	ctx, done := s.start(ctx, "set_admin", "users")
	u, err := s.next.SetAdmin(ctx, id, isAdmin)
	done(err)
	return u, err
}

func (s *Instrumented) ListAdmins(ctx context.Context) ([]*models.User, error) {
	ctx, done := s.start(ctx, "list_admins", "users")
	users, err := s.next.ListAdmins(ctx)
	done(err)
	return users, err
}

func (s *Instrumented) CreatePost(ctx context.Context, in models.NewPost, authorID uint) (*models.Post, error) {
	ctx, done := s.start(ctx, "create_post", "posts")
	p, err := s.next.CreatePost(ctx, in, authorID)
	done(err)
	return p, err
}

func (s *Instrumented) ListPosts(ctx context.Context) ([]*models.Post, error) {
	ctx, done := s.start(ctx, "list_posts", "posts")
	posts, err := s.next.ListPosts(ctx)
	done(err)
	return posts, err
}

func (s *Instrumented) ListPostsByCategory(ctx context.Context, category models.Category) ([]*models.Post, error) {
	ctx, done := s.start(ctx, "list_posts_by_category", "posts")
	posts, err := s.next.ListPostsByCategory(ctx, category)
	done(err)
	return posts, err
}

func (s *Instrumented) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	ctx, done := s.start(ctx, "get_post", "posts")
	p, err := s.next.GetPost(ctx, id)
	done(err)
	return p, err
}

func (s *Instrumented) CreateComment(ctx context.Context, in models.NewComment, postID, authorID uint) (*models.Comment, error) {
	ctx, done := s.start(ctx, "create_comment", "comments")
	c, err := s.next.CreateComment(ctx, in, postID, authorID)
	done(err)
	return c, err
}

func (s *Instrumented) ListCommentsByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	ctx, done := s.start(ctx, "list_comments_by_post", "comments")
	comments, err := s.next.ListCommentsByPost(ctx, postID)
	done(err)
	return comments, err
}

func (s *Instrumented) CreateBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error) {
	ctx, done := s.start(ctx, "create_bookmark", "bookmarks")
	b, err := s.next.CreateBookmark(ctx, userID, postID)
	done(err)
	return b, err
}

func (s *Instrumented) FindBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error) {
	ctx, done := s.start(ctx, "find_bookmark", "bookmarks")
	b, err := s.next.FindBookmark(ctx, userID, postID)
	done(err)
	return b, err
}

func (s *Instrumented) DeleteBookmark(ctx context.Context, userID, postID uint) error {
	ctx, done := s.start(ctx, "delete_bookmark", "bookmarks")
	err := s.next.DeleteBookmark(ctx, userID, postID)
	done(err)
	return err
}

func (s *Instrumented) ListBookmarksByUser(ctx context.Context, userID uint) ([]*models.Bookmark, error) {
	ctx, done := s.start(ctx, "list_bookmarks_by_user", "bookmarks")
	bookmarks, err := s.next.ListBookmarksByUser(ctx, userID)
	done(err)
	return bookmarks, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close() error {
	return s.next.Close()
}
