package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"culturetech/internal/authz"
	"culturetech/internal/middleware"
	"culturetech/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "culturetech-api"
	tokenAudience = "culturetech-client"

	localIdentity = "identity"
	localUserID   = "userID"
	localSession  = "session"
)

// session is the verified content of a session token.
type session struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

var errNoToken = errors.New("no session token")

// Identify resolves the caller from the session cookie or a Bearer header.
// Missing, invalid, expired and revoked tokens all resolve to anonymous; the
// handlers decide whether that is acceptable. The admin flag always comes
// from the store, never from the token.
func (s *Server) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(localIdentity, authz.Anonymous)

		sess, err := s.readSession(c)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				middleware.Logger.DebugContext(c.UserContext(), "ignoring session token", "reason", err.Error())
			}
			return c.Next()
		}

		revoked, err := s.revocations.IsRevoked(c.UserContext(), sess.JTI)
		if err != nil {
			// Redis trouble must not lock everyone out
			middleware.Logger.WarnContext(c.UserContext(), "revocation check failed", "error", err)
		}
		if revoked {
			return c.Next()
		}

		user, err := s.store.GetUser(c.UserContext(), sess.UserID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if user == nil {
			return c.Next()
		}

		c.Locals(localIdentity, authz.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
		c.Locals(localUserID, user.ID)
		c.Locals(localSession, sess)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), user.ID))

		return c.Next()
	}
}

func identityFrom(c *fiber.Ctx) authz.Identity {
	if id, ok := c.Locals(localIdentity).(authz.Identity); ok {
		return id
	}
	return authz.Anonymous
}

func (s *Server) tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(s.config.SessionCookieName)
}

func (s *Server) readSession(c *fiber.Ctx) (*session, error) {
	tokenString := s.tokenFromRequest(c)
	if tokenString == "" {
		return nil, errNoToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("invalid subject claim: %w", err)
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, errors.New("invalid user ID in token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.New("invalid expiration claim")
	}

	jti, _ := claims["jti"].(string)
	return &session{UserID: uint(userID), JTI: jti, ExpiresAt: exp.Time}, nil
}

// issueSession signs a token for user and sets it as the session cookie. The
// token is returned as well for clients that prefer the Bearer header.
func (s *Server) issueSession(c *fiber.Ctx, user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", errors.New("JWT secret not configured")
	}

	now := time.Now()
	ttl := time.Duration(s.config.SessionTTLHours) * time.Hour
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(user.ID), 10),
		"iss": tokenIssuer,
		"aud": tokenAudience,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": generateJTI(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(ttl),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return signed, nil
}

func (s *Server) clearSession(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// generateJTI creates a unique token id so a single session can be revoked.
func generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String())
}
