package server

import (
	"culturetech/internal/authz"
	"culturetech/internal/models"
	"culturetech/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/posts/:postId/comments
// @Summary List comments of a post
// @Tags comments
// @Produce json
// @Param postId path int true "Post ID"
// @Success 200 {array} models.Comment
// @Router /posts/{postId}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, ok := parseUintParam(c.Params("postId"))
	if !ok {
		// nothing can be attached to an id that cannot exist
		return c.JSON([]*models.Comment{})
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:postId/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param request body models.NewComment true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.CreateComment)
	if err != nil {
		return nil
	}

	postID, err := parsePostID(c)
	if err != nil {
		return nil
	}

	in, err := s.validator.Comment(c.Body())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		AuthorID: id.UserID,
		PostID:   postID,
		Content:  in.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}
