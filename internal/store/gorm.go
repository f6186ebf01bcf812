package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"culturetech/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE PostgreSQL reports for duplicate keys.
const pgUniqueViolation = "23505"

// GormStore implements Store on top of a gorm connection. The schema is
// expected to be migrated already (see database.Connect).
type GormStore struct {
	db     *gorm.DB
	policy AdminPolicy
	now    func() time.Time
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := applyOptions(opts)
	return &GormStore{db: db, policy: o.policy, now: o.now}
}

// timestamp matches what the database hands back: UTC at microsecond precision.
func (s *GormStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateUser counts existing users and inserts inside one transaction so two
// concurrent first registrations cannot both become admin.
func (s *GormStore) CreateUser(ctx context.Context, in models.NewUser) (*models.User, error) {
	u := &models.User{
		Username:  in.Username,
		Password:  in.Password,
		CreatedAt: s.timestamp(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return err
			}
		}

		var existing int64
		if err := tx.Model(&models.User{}).Count(&existing).Error; err != nil {
			return err
		}
		u.IsAdmin = s.policy.grantsAdmin(existing)

		// Select keeps gorm from dropping a false is_admin in favour of the
		// column default.
		return tx.Select("Username", "Password", "IsAdmin", "CreatedAt").Create(u).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFoundAsNil("get user", err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFoundAsNil("get user by username", err)
	}
	return &u, nil
}

func (s *GormStore) SetAdmin(ctx context.Context, id uint, isAdmin bool) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin)
	if res.Error != nil {
		return nil, fmt.Errorf("set admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetUser(ctx, id)
}

func (s *GormStore) ListAdmins(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0)
	if err := s.db.WithContext(ctx).Where("is_admin = ?", true).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return users, nil
}

func (s *GormStore) CreatePost(ctx context.Context, in models.NewPost, authorID uint) (*models.Post, error) {
	p := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Category:  in.Category,
		AuthorID:  authorID,
		CreatedAt: s.timestamp(),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *GormStore) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *GormStore) ListPostsByCategory(ctx context.Context, category models.Category) ([]*models.Post, error) {
	posts := make([]*models.Post, 0)
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list posts by category: %w", err)
	}
	return posts, nil
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFoundAsNil("get post", err)
	}
	return &p, nil
}

func (s *GormStore) CreateComment(ctx context.Context, in models.NewComment, postID, authorID uint) (*models.Comment, error) {
	c := &models.Comment{
		Content:   in.Content,
		PostID:    postID,
		AuthorID:  authorID,
		CreatedAt: s.timestamp(),
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

func (s *GormStore) ListCommentsByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := make([]*models.Comment, 0)
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *GormStore) CreateBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error) {
	b := &models.Bookmark{UserID: userID, PostID: postID}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	return b, nil
}

func (s *GormStore) FindBookmark(ctx context.Context, userID, postID uint) (*models.Bookmark, error) {
	return firstBookmark(s.db.WithContext(ctx), userID, postID)
}

// DeleteBookmark removes the lowest-id bookmark for the pair, if any.
func (s *GormStore) DeleteBookmark(ctx context.Context, userID, postID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := firstBookmark(tx, userID, postID)
		if err != nil || b == nil {
			return err
		}
		if err := tx.Delete(&models.Bookmark{}, b.ID).Error; err != nil {
			return fmt.Errorf("delete bookmark: %w", err)
		}
		return nil
	})
}

func (s *GormStore) ListBookmarksByUser(ctx context.Context, userID uint) ([]*models.Bookmark, error) {
	bookmarks := make([]*models.Bookmark, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&bookmarks).Error
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func firstBookmark(db *gorm.DB, userID, postID uint) (*models.Bookmark, error) {
	var bookmarks []models.Bookmark
	err := db.Where("user_id = ? AND post_id = ?", userID, postID).
		Order("id ASC").
		Limit(1).
		Find(&bookmarks).Error
	if err != nil {
		return nil, fmt.Errorf("find bookmark: %w", err)
	}
	if len(bookmarks) == 0 {
		return nil, nil
	}
	return &bookmarks[0], nil
}

func notFoundAsNil(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
