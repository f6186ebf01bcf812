package server

import (
	"time"

	"culturetech/internal/authz"
	"culturetech/internal/middleware"
	"culturetech/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/register
// @Summary Register an account
// @Description Creates an account and starts a session. The first account becomes the admin.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	creds, err := s.validator.Register(c.Body())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userService.Register(c.UserContext(), creds.Username, creds.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if _, err := s.issueSession(c, user); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/login
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,password=string} true "Credentials"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	creds, err := s.validator.Login(c.Body())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	user, err := s.userService.Authenticate(c.UserContext(), creds.Username, creds.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if _, err := s.issueSession(c, user); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return c.JSON(user)
}

// Logout handles POST /api/logout
// @Summary Log out
// @Description Revokes the current session token and clears the session cookie.
// @Tags auth
// @Success 200
// @Router /logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if sess, ok := c.Locals(localSession).(*session); ok {
		ttl := time.Until(sess.ExpiresAt)
		if err := s.revocations.Revoke(c.UserContext(), sess.JTI, ttl); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
		}
	}
	s.clearSession(c)
	return c.SendStatus(fiber.StatusOK)
}

// GetCurrentUser handles GET /api/user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /user [get]
func (s *Server) GetCurrentUser(c *fiber.Ctx) error {
	id, err := s.authorize(c, authz.ReadSelf)
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.UserContext(), id.UserID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}
