package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Plano3D/app/repository"
	"github.com/ManuelReschke/Plano3D/internal/pkg/usercontext"
)

// JWTConfig configures bearer token verification.
type JWTConfig struct {
	Secret    string
	Algorithm string
	Users     repository.UserRepository
}

var errMissingSubject = errors.New("token has no subject")

// JWTAuth authenticates requests carrying a bearer token issued by the
// identity service. The subject claim holds the account email.
func JWTAuth(cfg JWTConfig) fiber.Handler {
	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{alg}), jwt.WithExpirationRequired())
	secret := []byte(cfg.Secret)

	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return unauthorized(c, "Missing bearer token")
		}

		email, err := subjectFromToken(parser, token, secret)
		if err != nil {
			return unauthorized(c, "Could not validate credentials")
		}

		user, err := cfg.Users.GetByEmail(c.UserContext(), email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return unauthorized(c, "Could not validate credentials")
			}
			fiberlog.Errorf("jwt auth: user lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Credential verification failed"})
		}

		usercontext.Set(c, usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.Name,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func subjectFromToken(parser *jwt.Parser, token string, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return "", err
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", errMissingSubject
	}
	return sub, nil
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func unauthorized(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": message})
}
