// Package store holds the entity store: users, posts, comments and bookmarks
// with per-type id counters. Two backends satisfy Store: an in-memory one and
// a gorm one for PostgreSQL or SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"culturetech/internal/models"
)

// ErrDuplicateUsername is returned by backends that enforce username
// uniqueness at the storage level.
var ErrDuplicateUsername = errors.New("username already exists")

// Store defines every entity operation the handlers rely on. Lookups return a
// nil record, not an error, when nothing matches.
type Store interface {
	CreateUser(ctx context.Context, in models.NewUser) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error)
	ListAdmins(ctx context.Context) ([]*models.User, error)

	CreatePost(ctx context.Context, in models.NewPost, authorID uint) (*models.Post, error)
	ListPosts(ctx context.Context) ([]*models.Post, error)
	ListPostsByCategory(ctx context.Context, category models.Category) ([]*models.Post, error)
	GetPost(ctx context.Context, id uint) (*models.Post, error)

	CreateComment(ctx context.Context, in models.NewComment, postID, authorID uint) (*models.Comment, error)
	ListCommentsByPost(ctx context.Context, postID uint) ([]*models.Comment, error)

	CreateBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error)
	FindBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID, postID uint) error
	ListBookmarksByUser(ctx context.Context, userID uint) ([]*models.Bookmark, error)

	Ping(ctx context.Context) error
	Close() error
}

// AdminPolicy decides how the admin flag of a new user is set.
type AdminPolicy string

const (
	// AdminFirstUser makes the first user ever created an admin.
	AdminFirstUser AdminPolicy = "first_user"
	// AdminSeed never elevates on creation; an operator-configured seed
	// account is elevated at startup instead.
	AdminSeed AdminPolicy = "seed"
)

// ParseAdminPolicy accepts the configured bootstrap mode. Empty means
// AdminFirstUser.
func ParseAdminPolicy(s string) (AdminPolicy, error) {
	switch AdminPolicy(s) {
	case "", AdminFirstUser:
		return AdminFirstUser, nil
	case AdminSeed:
		return AdminSeed, nil
	default:
		return "", fmt.Errorf("unknown admin bootstrap policy %q", s)
	}
}

// grantsAdmin reports whether a user created when existing users already
// exist should be an admin.
func (p AdminPolicy) grantsAdmin(existing int64) bool {
	return p != AdminSeed && existing == 0
}

type options struct {
	policy AdminPolicy
	now    func() time.Time
}

// Option configures a store backend.
type Option func(*options)

// WithAdminPolicy overrides the default first-user admin bootstrap.
func WithAdminPolicy(p AdminPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func applyOptions(opts []Option) options {
	o := options{policy: AdminFirstUser, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)
