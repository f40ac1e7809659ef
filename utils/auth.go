package utils

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/skyloft-tech/AcademiQa/models"
	"github.com/skyloft-tech/AcademiQa/policy"
)

var jwtSecret = []byte(func() string {
	if secret := os.Getenv("ACADEMIQA_JWT_SECRET"); secret != "" {
		return secret
	}
	return "supersecretkey"
}())

// SetJWTSecret overrides the signing key; called once at startup with the
// configured value.
func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

func JwtSecret() []byte {
	return jwtSecret
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func GenerateJWT(user models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

var errInvalidToken = errors.New("invalid token")

// ActorFromToken validates a bearer token and resolves it into an Actor.
// This is the single place a role is read off a credential; everything past
// this boundary carries the Actor explicitly.
func ActorFromToken(tokenString string) (policy.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return policy.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Actor{}, errInvalidToken
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return policy.Actor{}, errInvalidToken
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)

	return policy.Actor{
		ID:       uint(userID),
		Username: username,
		Role:     role,
	}, nil
}
