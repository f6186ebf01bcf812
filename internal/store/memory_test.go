package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"culturetech/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_FirstUserIsAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 5; i++ {
		u, err := s.CreateUser(ctx, models.NewUser{Username: fmt.Sprintf("user%d", i), Password: "hash"})
		require.NoError(t, err)
		assert.Equal(t, uint(i+1), u.ID)
		assert.Equal(t, i == 0, u.IsAdmin, "user %d", i)
	}

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "user0", admins[0].Username)
}

func TestMemoryStore_SeedPolicyNeverAutoElevates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithAdminPolicy(AdminSeed))

	u, err := s.CreateUser(ctx, models.NewUser{Username: "alice", Password: "hash"})
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	elevated, err := s.SetAdmin(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, elevated.IsAdmin)

	missing, err := s.SetAdmin(ctx, 99, true)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_ConcurrentCreateUserHasOneAdmin(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateUser(ctx, models.NewUser{Username: fmt.Sprintf("u%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, uint(1), admins[0].ID)
}

func TestMemoryStore_UserLookups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.CreateUser(ctx, models.NewUser{Username: "Alice", Password: "hash"})
	require.NoError(t, err)

	got, err := s.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	byName, err := s.GetUserByUsername(ctx, "Alice")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)

	// usernames are case-sensitive
	none, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, none)

	missing, err := s.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_PostRoundTrip(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return fixed }))

	created, err := s.CreatePost(ctx, models.NewPost{
		Title:    "T",
		Content:  "C",
		Category: models.CategoryAI,
		ImageURL: strPtr("https://example.com/a.png"),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.ID)
	assert.Equal(t, fixed, created.CreatedAt)

	got, err := s.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// mutating a returned record leaves the stored one untouched
	*got.ImageURL = "https://evil.example.com"
	got.Title = "changed"
	again, err := s.GetPost(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "T", again.Title)
	assert.Equal(t, "https://example.com/a.png", *again.ImageURL)

	none, err := s.GetPost(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStore_ListPostsByCategoryIsSubsetOfListPosts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	cats := []models.Category{models.CategoryAI, models.CategoryCinema, models.CategoryAI, models.CategoryMythology}
	for i, c := range cats {
		_, err := s.CreatePost(ctx, models.NewPost{Title: fmt.Sprintf("p%d", i), Content: "x", Category: c}, 1)
		require.NoError(t, err)
	}

	all, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, p := range all {
		assert.Equal(t, uint(i+1), p.ID)
	}

	for _, c := range models.Categories {
		got, err := s.ListPostsByCategory(ctx, c)
		require.NoError(t, err)

		var want []*models.Post
		for _, p := range all {
			if p.Category == c {
				want = append(want, p)
			}
		}
		assert.Equal(t, len(want), len(got), "category %s", c)
		for i := range want {
			assert.Equal(t, want[i], got[i])
		}
	}

	empty, err := s.ListPostsByCategory(ctx, models.CategoryCricket)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryStore_Comments(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c1, err := s.CreateComment(ctx, models.NewComment{Content: "first"}, 1, 2)
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, models.NewComment{Content: "other post"}, 2, 2)
	require.NoError(t, err)
	c3, err := s.CreateComment(ctx, models.NewComment{Content: "second"}, 1, 3)
	require.NoError(t, err)

	// no post-existence check at the store level
	orphan, err := s.CreateComment(ctx, models.NewComment{Content: "orphan"}, 999, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(4), orphan.ID)

	got, err := s.ListCommentsByPost(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, c1.ID, got[0].ID)
	assert.Equal(t, c3.ID, got[1].ID)
	assert.Equal(t, uint(3), got[1].AuthorID)
}

func TestMemoryStore_Bookmarks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	b1, err := s.CreateBookmark(ctx, 1, 10)
	require.NoError(t, err)
	b2, err := s.CreateBookmark(ctx, 1, 10)
	require.NoError(t, err)
	assert.NotEqual(t, b1.ID, b2.ID, "duplicates are allowed")

	_, err = s.CreateBookmark(ctx, 2, 10)
	require.NoError(t, err)

	found, err := s.FindBookmark(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, found.ID)

	require.NoError(t, s.DeleteBookmark(ctx, 1, 10))
	mine, err := s.ListBookmarksByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b2.ID, mine[0].ID, "first match is removed")

	require.NoError(t, s.DeleteBookmark(ctx, 1, 10))
	require.NoError(t, s.DeleteBookmark(ctx, 1, 10), "deleting a missing pair is a no-op")

	mine, err = s.ListBookmarksByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, mine)

	// the counter never moves backwards
	b4, err := s.CreateBookmark(ctx, 1, 11)
	require.NoError(t, err)
	assert.Equal(t, uint(4), b4.ID)

	theirs, err := s.ListBookmarksByUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestMemoryStore_CountersArePerType(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u, _ := s.CreateUser(ctx, models.NewUser{Username: "a"})
	p, _ := s.CreatePost(ctx, models.NewPost{Title: "t", Content: "c", Category: models.CategoryAI}, u.ID)
	c, _ := s.CreateComment(ctx, models.NewComment{Content: "c"}, p.ID, u.ID)
	b, _ := s.CreateBookmark(ctx, u.ID, p.ID)

	assert.Equal(t, uint(1), u.ID)
	assert.Equal(t, uint(1), p.ID)
	assert.Equal(t, uint(1), c.ID)
	assert.Equal(t, uint(1), b.ID)
}

func TestParseAdminPolicy(t *testing.T) {
	p, err := ParseAdminPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AdminFirstUser, p)

	p, err = ParseAdminPolicy("seed")
	require.NoError(t, err)
	assert.Equal(t, AdminSeed, p)

	_, err = ParseAdminPolicy("everyone")
	assert.Error(t, err)
}
