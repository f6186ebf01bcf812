package store

import (
	"context"
	"sync"
	"time"

	"culturetech/internal/models"
)

// MemoryStore keeps every entity in process memory. Records are kept in id
// order and callers only ever receive copies.
type MemoryStore struct {
	mu     sync.RWMutex
	policy AdminPolicy
	now    func() time.Time

	users     map[uint]*models.User
	posts     map[uint]*models.Post
	comments  map[uint]*models.Comment
	bookmarks map[uint]*models.Bookmark

	// insertion order per type; bookmarks are removed from here on delete
	userOrder     []uint
	postOrder     []uint
	commentOrder  []uint
	bookmarkOrder []uint

	nextUserID     uint
	nextPostID     uint
	nextCommentID  uint
	nextBookmarkID uint
}

// NewMemoryStore creates an empty store with all counters at 1.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := applyOptions(opts)
	return &MemoryStore{
		policy:         o.policy,
		now:            o.now,
		users:          make(map[uint]*models.User),
		posts:          make(map[uint]*models.Post),
		comments:       make(map[uint]*models.Comment),
		bookmarks:      make(map[uint]*models.Bookmark),
		nextUserID:     1,
		nextPostID:     1,
		nextCommentID:  1,
		nextBookmarkID: 1,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, in models.NewUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &models.User{
		ID:        s.nextUserID,
		Username:  in.Username,
		Password:  in.Password,
		IsAdmin:   s.policy.grantsAdmin(int64(len(s.users))),
		CreatedAt: s.now(),
	}
	s.nextUserID++
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)

	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.userOrder {
		if u := s.users[id]; u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SetAdmin(_ context.Context, id uint, isAdmin bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.IsAdmin = isAdmin
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListAdmins(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0)
	for _, id := range s.userOrder {
		if u := s.users[id]; u.IsAdmin {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreatePost(_ context.Context, in models.NewPost, authorID uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &models.Post{
		ID:        s.nextPostID,
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  cloneString(in.ImageURL),
		Category:  in.Category,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}
	s.nextPostID++
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)

	return copyPost(p), nil
}

func (s *MemoryStore) ListPosts(_ context.Context) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		out = append(out, copyPost(s.posts[id]))
	}
	return out, nil
}

func (s *MemoryStore) ListPostsByCategory(_ context.Context, category models.Category) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Post, 0)
	for _, id := range s.postOrder {
		if p := s.posts[id]; p.Category == category {
			out = append(out, copyPost(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) GetPost(_ context.Context, id uint) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	return copyPost(p), nil
}

func (s *MemoryStore) CreateComment(_ context.Context, in models.NewComment, postID, authorID uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &models.Comment{
		ID:        s.nextCommentID,
		Content:   in.Content,
		PostID:    postID,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}
	s.nextCommentID++
	s.comments[c.ID] = c
	s.commentOrder = append(s.commentOrder, c.ID)

	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListCommentsByPost(_ context.Context, postID uint) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Comment, 0)
	for _, id := range s.commentOrder {
		if c := s.comments[id]; c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateBookmark(_ context.Context, userID, postID uint) (*models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &models.Bookmark{ID: s.nextBookmarkID, UserID: userID, PostID: postID}
	s.nextBookmarkID++
	s.bookmarks[b.ID] = b
	s.bookmarkOrder = append(s.bookmarkOrder, b.ID)

	cp := *b
	return &cp, nil
}

func (s *MemoryStore) FindBookmark(_ context.Context, userID, postID uint) (*models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.findBookmarkLocked(userID, postID); i >= 0 {
		cp := *s.bookmarks[s.bookmarkOrder[i]]
		return &cp, nil
	}
	return nil, nil
}

// DeleteBookmark removes the first bookmark matching the pair. Missing pairs
// are not an error.
func (s *MemoryStore) DeleteBookmark(_ context.Context, userID, postID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findBookmarkLocked(userID, postID)
	if i < 0 {
		return nil
	}
	delete(s.bookmarks, s.bookmarkOrder[i])
	s.bookmarkOrder = append(s.bookmarkOrder[:i], s.bookmarkOrder[i+1:]...)
	return nil
}

func (s *MemoryStore) ListBookmarksByUser(_ context.Context, userID uint) ([]*models.Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Bookmark, 0)
	for _, id := range s.bookmarkOrder {
		if b := s.bookmarks[id]; b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) findBookmarkLocked(userID, postID uint) int {
	for i, id := range s.bookmarkOrder {
		if b := s.bookmarks[id]; b.UserID == userID && b.PostID == postID {
			return i
		}
	}
	return -1
}

func copyPost(p *models.Post) *models.Post {
	cp := *p
	cp.ImageURL = cloneString(p.ImageURL)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
