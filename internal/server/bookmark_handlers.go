package server

import (
	"culturetech/internal/authz"
	"culturetech/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateBookmark handles POST /api/bookmarks/:postId
// @Summary Bookmark a post
// @Description Returns 200 with the existing bookmark when bookmark_dedupe is on and the post is already bookmarked.
// @Tags bookmarks
// @Produce json
// @Param postId path int true "Post ID"
// @Success 201 {object} models.Bookmark
// @Success 200 {object} models.Bookmark
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /bookmarks/{postId} [post]
func (s *Server) CreateBookmark(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.CreateBookmark)
	if err != nil {
		return nil
	}

	postID, err := parsePostID(c)
	if err != nil {
		return nil
	}

	bookmark, created, err := s.bookmarkService.CreateBookmark(c.UserContext(), id.UserID, postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	status := fiber.StatusCreated
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(bookmark)
}

// DeleteBookmark handles DELETE /api/bookmarks/:postId
// @Summary Remove a bookmark
// @Description Removing a bookmark that does not exist succeeds.
// @Tags bookmarks
// @Param postId path int true "Post ID"
// @Success 200
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /bookmarks/{postId} [delete]
func (s *Server) DeleteBookmark(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.DeleteBookmark)
	if err != nil {
		return nil
	}

	postID, err := parsePostID(c)
	if err != nil {
		return nil
	}

	if err := s.bookmarkService.DeleteBookmark(c.UserContext(), id.UserID, postID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// GetBookmarks handles GET /api/bookmarks
// @Summary List my bookmarks
// @Tags bookmarks
// @Produce json
// @Success 200 {array} models.Bookmark
// @Failure 401 {object} models.ErrorResponse
// @Router /bookmarks [get]
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.ListBookmarks)
	if err != nil {
		return nil
	}

	bookmarks, err := s.bookmarkService.ListBookmarks(c.UserContext(), id.UserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(bookmarks)
}
