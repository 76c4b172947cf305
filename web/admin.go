package web

import (
	"errors"

	jwtware "github.com/gofiber/contrib/v3/jwt"
	"github.com/gofiber/fiber/v3"
	jwtgo "github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing   = errors.New("web: token missing from context")
	ErrNotSuperuser   = errors.New("web: superuser token required")
	ErrWrongTokenType = errors.New("web: access token required")
)

// AdminGuard admits requests bearing an HS256 access token with the
// superuser claim signed by secret.
func AdminGuard(secret string, issuer string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(secret)},
		SuccessHandler: func(c fiber.Ctx) error {
			if err := checkAdminClaims(jwtware.FromContext(c), issuer); err != nil {
				return fiber.NewError(fiber.StatusForbidden, err.Error())
			}
			return c.Next()
		},
		ErrorHandler: func(c fiber.Ctx, err error) error {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		},
	})
}

func checkAdminClaims(token *jwtgo.Token, issuer string) error {
	if token == nil {
		return ErrTokenMissing
	}
	claims, ok := token.Claims.(jwtgo.MapClaims)
	if !ok || token.Method != jwtgo.SigningMethodHS256 {
		return ErrTokenMissing
	}
	if tt, _ := claims["token_type"].(string); tt != "access" {
		return ErrWrongTokenType
	}
	if iss, _ := claims.GetIssuer(); issuer != "" && iss != issuer {
		return jwtgo.ErrTokenInvalidIssuer
	}
	if su, _ := claims["superuser"].(bool); !su {
		return ErrNotSuperuser
	}
	return nil
}
