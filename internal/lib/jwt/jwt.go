package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"news-api/internal/domain/models"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimUID   = "uid"
	ClaimEmail = "email"
)

var ErrNoUID = errors.New("token has no uid claim")

// NewToken signs an HS256 token carrying the user's internal id and email.
func NewToken(user models.User, duration time.Duration, secret string) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims[ClaimUID] = user.ID
	claims[ClaimEmail] = user.Email
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// UIDFromContext extracts the uid claim of a token verified by jwtauth.
func UIDFromContext(ctx context.Context) (int64, error) {
	const op = "lib.jwt.UIDFromContext"

	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return uidFromClaims(claims)
}

func uidFromClaims(claims map[string]interface{}) (int64, error) {
	const op = "lib.jwt.uidFromClaims"

	switch c := claims[ClaimUID].(type) {
	case float64:
		return int64(c), nil
	case int64:
		return c, nil
	case json.Number:
		uid, err := c.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return uid, nil
	default:
		return 0, fmt.Errorf("%s: %w", op, ErrNoUID)
	}
}
