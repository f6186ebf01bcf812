package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"culturetech/internal/config"
	"culturetech/internal/models"
	"culturetech/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testEnv struct {
	app    *fiber.App
	server *Server
	store  *store.MemoryStore
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		JWTSecret:         testSecret,
		SessionCookieName: "culturetech_session",
		SessionTTLHours:   1,
		StoreDriver:       config.StoreMemory,
		AllowedOrigins:    "http://localhost:5173",
	}
}

func newTestEnv(t *testing.T, rdb *redis.Client, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	st := store.NewMemoryStore()
	s, err := NewServerWithDeps(cfg, st, rdb, WithPasswordCost(bcrypt.MinCost))
	require.NoError(t, err)
	return &testEnv{app: s.NewApp(), server: s, store: st}
}

// do sends a request with an optional JSON body and session token.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/register", "", fiber.Map{"username": username, "password": "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return sessionCookie(t, resp).Value
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "culturetech_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func signToken(t *testing.T, userID uint, issuer string, exp time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": issuer,
		"aud": tokenAudience,
		"exp": time.Now().Add(exp).Unix(),
		"jti": "test-jti",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestScenario_AdminPublishesMemberIsForbidden(t *testing.T) {
	env := newTestEnv(t, nil)

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	me := decode[models.User](t, env.do(t, http.MethodGet, "/api/user", alice, nil))
	assert.True(t, me.IsAdmin)
	me = decode[models.User](t, env.do(t, http.MethodGet, "/api/user", bob, nil))
	assert.False(t, me.IsAdmin)

	resp := env.do(t, http.MethodPost, "/api/posts", alice, fiber.Map{"title": "T", "content": "C", "category": "AI"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Post](t, resp)
	assert.Equal(t, uint(1), created.ID)
	assert.Nil(t, created.ImageURL)

	resp = env.do(t, http.MethodGet, "/api/posts/category/AI", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byCategory := decode[[]models.Post](t, resp)
	require.Len(t, byCategory, 1)
	assert.Equal(t, created.ID, byCategory[0].ID)
	assert.Equal(t, "T", byCategory[0].Title)

	resp = env.do(t, http.MethodPost, "/api/posts", bob, fiber.Map{"title": "T2", "content": "C2", "category": "AI"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, decode[models.ErrorResponse](t, resp).Code)

	resp = env.do(t, http.MethodGet, "/api/posts/category/Sports", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	all := decode[[]models.Post](t, env.do(t, http.MethodGet, "/api/posts", "", nil))
	assert.Len(t, all, 1)
}

func TestCreatePost_AuthorizationPrecedesValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.register(t, "alice")
	member := env.register(t, "bob")
	malformed := `{"title": "", "category": "Sports"`

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{"anonymous", "", http.StatusUnauthorized, models.CodeUnauthenticated},
		{"member", member, http.StatusForbidden, models.CodeForbidden},
		{"admin", admin, http.StatusBadRequest, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/posts", tt.token, malformed)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[models.ErrorResponse](t, resp).Code)
		})
	}
}

func TestCreatePost_ValidationFields(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/posts", admin, fiber.Map{"title": "T", "category": "Sports"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeValidation, body.Code)
	assert.NotEmpty(t, body.Fields)

	resp = env.do(t, http.MethodPost, "/api/posts", admin, fiber.Map{
		"title": "T", "content": "C", "category": "Cinema", "imageUrl": "https://example.com/a.png",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[models.Post](t, resp)
	require.NotNil(t, post.ImageURL)
	assert.Equal(t, "https://example.com/a.png", *post.ImageURL)
	assert.Equal(t, env.mustUser(t, "alice").ID, post.AuthorID)
}

func (e *testEnv) mustUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func TestGetPost(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.register(t, "alice")
	created := decode[models.Post](t, env.do(t, http.MethodPost, "/api/posts", admin,
		fiber.Map{"title": "T", "content": "C", "category": "Cricket"}))

	resp := env.do(t, http.MethodGet, "/api/posts/"+strconv.Itoa(int(created.ID)), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.Post](t, resp)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	for _, path := range []string{"/api/posts/999", "/api/posts/abc", "/api/posts/0"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestGetPostsByCategory_IsCaseSensitive(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, category := range []string{"ai", "cinema", "Sports", "AI%20"} {
		resp := env.do(t, http.MethodGet, "/api/posts/category/"+category, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, category)
	}
	resp := env.do(t, http.MethodGet, "/api/posts/category/Mythology", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Post](t, resp))
}

func TestComments(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.register(t, "alice")
	member := env.register(t, "bob")
	env.do(t, http.MethodPost, "/api/posts", admin, fiber.Map{"title": "T", "content": "C", "category": "AI"})

	resp := env.do(t, http.MethodPost, "/api/posts/1/comments", "", fiber.Map{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts/abc/comments", member, fiber.Map{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts/1/comments", member, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/posts/1/comments", member, fiber.Map{"content": "first"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decode[models.Comment](t, resp)
	assert.Equal(t, uint(1), comment.PostID)
	assert.Equal(t, env.mustUser(t, "bob").ID, comment.AuthorID)

	// the post is not checked by default
	resp = env.do(t, http.MethodPost, "/api/posts/42/comments", member, fiber.Map{"content": "orphan"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	comments := decode[[]models.Comment](t, env.do(t, http.MethodGet, "/api/posts/1/comments", "", nil))
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Content)

	resp = env.do(t, http.MethodGet, "/api/posts/abc/comments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Comment](t, resp))
}

func TestEmptyTextIsAccepted(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/posts", admin, fiber.Map{"title": "", "content": "", "category": "AI"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[models.Post](t, resp)
	assert.Empty(t, post.Title)

	resp = env.do(t, http.MethodPost, "/api/posts/"+strconv.FormatUint(uint64(post.ID), 10)+"/comments", admin, fiber.Map{"content": ""})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, decode[models.Comment](t, resp).Content)

	resp = env.do(t, http.MethodPost, "/api/posts", admin, fiber.Map{"title": "T", "content": "C", "category": "AI", "imageUrl": nil})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "/imageUrl", decode[models.ErrorResponse](t, resp).Fields[0].Path)
}

func TestComments_PostCheckFlag(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.FeatureFlags = "comment_post_check=on" })
	member := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/posts/42/comments", member, fiber.Map{"content": "orphan"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookmarks(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.register(t, "alice")
	other := env.register(t, "bob")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/bookmarks/1"},
		{http.MethodDelete, "/api/bookmarks/1"},
		{http.MethodGet, "/api/bookmarks"},
	} {
		resp := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.method+" "+tc.path)
	}

	resp := env.do(t, http.MethodPost, "/api/bookmarks/abc", user, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	first := decode[models.Bookmark](t, env.do(t, http.MethodPost, "/api/bookmarks/7", user, nil))
	resp = env.do(t, http.MethodPost, "/api/bookmarks/7", user, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[models.Bookmark](t, resp)
	assert.NotEqual(t, first.ID, second.ID, "duplicates are kept by default")
	env.do(t, http.MethodPost, "/api/bookmarks/8", other, nil)

	mine := decode[[]models.Bookmark](t, env.do(t, http.MethodGet, "/api/bookmarks", user, nil))
	assert.Len(t, mine, 2)
	for _, b := range mine {
		assert.Equal(t, env.mustUser(t, "alice").ID, b.UserID)
	}

	resp = env.do(t, http.MethodDelete, "/api/bookmarks/7", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine = decode[[]models.Bookmark](t, env.do(t, http.MethodGet, "/api/bookmarks", user, nil))
	require.Len(t, mine, 1)
	assert.Equal(t, second.ID, mine[0].ID, "the first match is removed")

	resp = env.do(t, http.MethodDelete, "/api/bookmarks/999", user, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBookmarks_DedupeFlag(t *testing.T) {
	env := newTestEnv(t, nil, func(c *config.Config) { c.FeatureFlags = "bookmark_dedupe=on" })
	user := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/bookmarks/3", user, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[models.Bookmark](t, resp)

	resp = env.do(t, http.MethodPost, "/api/bookmarks/3", user, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, decode[models.Bookmark](t, resp).ID)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/register", "", fiber.Map{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	assert.True(t, cookie.HttpOnly)
	user := decode[map[string]any](t, resp)
	assert.NotContains(t, user, "password")
	assert.Equal(t, true, user["isAdmin"])

	resp = env.do(t, http.MethodPost, "/api/register", "", fiber.Map{"username": "alice", "password": "password456"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Username already exists", decode[models.ErrorResponse](t, resp).Error)

	resp = env.do(t, http.MethodPost, "/api/register", "", fiber.Map{"username": "x", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/register", "", fiber.Map{"username": "carol", "password": strings.Repeat("a", 100)})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, models.CodeValidation, body.Code)
	require.NotEmpty(t, body.Fields)
	assert.Equal(t, "/password", body.Fields[0].Path)

	resp = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "nobody", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/login", "", fiber.Map{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := sessionCookie(t, resp).Value

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(&http.Cookie{Name: "culturetech_session", Value: token})
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", decode[models.User](t, resp).Username)
}

func TestIdentify_RejectedTokensAreAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong issuer", signToken(t, 1, "someone-else", time.Hour)},
		{"expired", signToken(t, 1, tokenIssuer, -time.Hour)},
		{"unknown user", signToken(t, 99, tokenIssuer, time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/api/user", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}

	resp := env.do(t, http.MethodGet, "/api/user", signToken(t, 1, tokenIssuer, time.Hour), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdentify_AdminFlagComesFromStore(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice")
	bob := env.register(t, "bob")
	post := fiber.Map{"title": "T", "content": "C", "category": "AI"}

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/posts", bob, post).StatusCode)

	_, err := env.store.SetAdmin(context.Background(), env.mustUser(t, "bob").ID, true)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/posts", bob, post).StatusCode)
}

func TestLogout_RevokesSession(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	env := newTestEnv(t, rdb)

	token := env.register(t, "alice")
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/user", token, nil).StatusCode)

	resp := env.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := sessionCookie(t, resp)
	assert.Empty(t, cleared.Value)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "revoked_session:")
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/user", token, nil).StatusCode)
}

func TestLogout_WithoutRedis(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.register(t, "alice")

	resp := env.do(t, http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["store"])
	assert.Equal(t, "disabled", checks["redis"])

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	withRedis := newTestEnv(t, rdb)
	mr.Close()
	resp = withRedis.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/api/posts", "", nil)

	resp := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "http_requests_total")
}
