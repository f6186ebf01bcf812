package server

import (
	"culturetech/internal/authz"
	"culturetech/internal/models"
	"culturetech/internal/service"
	"culturetech/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Get every post in creation order
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPostsByCategory handles GET /api/posts/category/:category
// @Summary List posts by category
// @Description Get the posts of one category. The category must match exactly.
// @Tags posts
// @Produce json
// @Param category path string true "Category" Enums(AI, Cinema, Cricket, Mythology)
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/category/{category} [get]
func (s *Server) GetPostsByCategory(c *fiber.Ctx) error {
	category, err := validation.ParseCategory(c.Params("category"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	posts, err := s.postService.ListPostsByCategory(c.UserContext(), category)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	raw := c.Params("id")
	id, ok := parseUintParam(raw)
	if !ok {
		// no post can have a non-numeric id
		return models.RespondWithAppError(c, models.NewNotFoundError("Post", raw))
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Admins only. Authorization is checked before the body is validated.
// @Tags posts
// @Accept json
// @Produce json
// @Param request body models.NewPost true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.CreatePost)
	if err != nil {
		return nil
	}

	in, err := s.validator.Post(c.Body())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID: id.UserID,
		Post:     in,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}
