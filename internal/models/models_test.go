package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, ok := ParseCategory(string(c))
		assert.True(t, ok)
		assert.Equal(t, c, got)
	}
	for _, s := range []string{"", "ai", "CINEMA", "Sports", " AI"} {
		_, ok := ParseCategory(s)
		assert.False(t, ok, s)
	}
}

func TestAppError_Status(t *testing.T) {
	tests := []struct {
		err    *AppError
		status int
	}{
		{NewUnauthenticatedError("x"), fiber.StatusUnauthorized},
		{NewForbiddenError("x"), fiber.StatusForbidden},
		{NewNotFoundError("Post", 1), fiber.StatusNotFound},
		{NewValidationError("x"), fiber.StatusBadRequest},
		{NewInternalError(errors.New("boom")), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.Status(), tt.err.Code)
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewForbiddenError("no"))
	assert.True(t, IsCode(err, CodeForbidden))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(errors.New("plain"), CodeForbidden))
}

func respond(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return RespondWithAppError(c, err) })

	resp, testErr := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, testErr)
	raw, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestRespondWithAppError(t *testing.T) {
	status, body := respond(t, NewValidationError("Invalid post data", FieldError{Path: "/title", Message: "is required"}))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, CodeValidation, body.Code)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "/title", body.Fields[0].Path)

	status, body = respond(t, NewInternalError(errors.New("connection refused")))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, body.Details, "internal causes are not exposed")

	status, body = respond(t, errors.New("unexpected"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, CodeInternal, body.Code)
}

func TestPost_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Post{ID: 1, Title: "T", Category: CategoryAI})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Contains(t, m, "imageUrl")
	assert.Nil(t, m["imageUrl"])
	assert.Contains(t, m, "authorId")
	assert.Contains(t, m, "createdAt")

	raw, err = json.Marshal(User{ID: 1, Username: "alice", Password: "hash", IsAdmin: true})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.Contains(t, string(raw), `"isAdmin":true`)
}
