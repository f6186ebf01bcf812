// Package seed fills an empty store with posts, either from a YAML fixture
// file or generated with gofakeit. Everything goes through the normal store
// and user-service paths, so the first-user admin rule still applies.
package seed

import (
	"context"
	"fmt"
	"os"

	"culturetech/internal/middleware"
	"culturetech/internal/models"
	"culturetech/internal/service"
	"culturetech/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
)

const (
	defaultAuthorUsername = "editor"
	defaultAuthorPassword = "editor-password"
)

// Fixture is the YAML seed file layout.
type Fixture struct {
	Author struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"author"`
	Posts []FixturePost `yaml:"posts"`
}

// FixturePost is one post entry of a Fixture.
type FixturePost struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
	ImageURL string `yaml:"imageUrl"`
}

// Options selects what to seed.
type Options struct {
	File      string
	DemoPosts int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// Seeder writes seed content through a store.
type Seeder struct {
	store store.Store
	users *service.UserService
}

func New(st store.Store, users *service.UserService) *Seeder {
	return &Seeder{store: st, users: users}
}

// Run seeds only when the store has no posts yet. It returns the number of
// posts created.
func (s *Seeder) Run(ctx context.Context, opts Options) (int, error) {
	if opts.File == "" && opts.DemoPosts <= 0 {
		return 0, nil
	}

	existing, err := s.store.ListPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("check existing posts: %w", err)
	}
	if len(existing) > 0 {
		middleware.Logger.InfoContext(ctx, "store already has posts, skipping seed", "posts", len(existing))
		return 0, nil
	}

	var fixture Fixture
	if opts.File != "" {
		if fixture, err = LoadFixture(opts.File); err != nil {
			return 0, err
		}
	}

	author, err := s.ensureAuthor(ctx, fixture.Author.Username, fixture.Author.Password)
	if err != nil {
		return 0, err
	}

	created := 0
	for i, p := range fixture.Posts {
		in, err := p.toNewPost()
		if err != nil {
			return created, fmt.Errorf("seed post %d: %w", i, err)
		}
		if _, err := s.store.CreatePost(ctx, in, author.ID); err != nil {
			return created, fmt.Errorf("seed post %d: %w", i, err)
		}
		created++
	}

	faker := gofakeit.New(opts.RandSeed)
	for i := 0; i < opts.DemoPosts; i++ {
		if _, err := s.store.CreatePost(ctx, demoPost(faker), author.ID); err != nil {
			return created, fmt.Errorf("seed demo post %d: %w", i, err)
		}
		created++
	}

	middleware.Logger.InfoContext(ctx, "seeded posts", "count", created, "author_id", author.ID)
	return created, nil
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	raw, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read seed file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return f, nil
}

func (s *Seeder) ensureAuthor(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		username = defaultAuthorUsername
	}
	if password == "" {
		password = defaultAuthorPassword
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("look up seed author: %w", err)
	}
	if user != nil {
		return user, nil
	}
	user, err = s.users.Register(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("create seed author: %w", err)
	}
	return user, nil
}

func (p FixturePost) toNewPost() (models.NewPost, error) {
	category, ok := models.ParseCategory(p.Category)
	if !ok {
		return models.NewPost{}, fmt.Errorf("unknown category %q", p.Category)
	}
	if p.Title == "" || p.Content == "" {
		return models.NewPost{}, fmt.Errorf("title and content are required")
	}
	in := models.NewPost{Title: p.Title, Content: p.Content, Category: category}
	if p.ImageURL != "" {
		img := p.ImageURL
		in.ImageURL = &img
	}
	return in, nil
}

func demoPost(f *gofakeit.Faker) models.NewPost {
	in := models.NewPost{
		Title:    f.Sentence(6),
		Content:  f.Paragraph(3, 4, 12, "\n\n"),
		Category: models.Categories[f.Number(0, len(models.Categories)-1)],
	}
	if f.Bool() {
		img := fmt.Sprintf("https://picsum.photos/seed/%s/800/450", f.UUID())
		in.ImageURL = &img
	}
	return in
}
