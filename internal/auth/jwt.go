package auth

import (
	"errors"
	"time"

	"mou-dashboard/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes understood by the API
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

func GenerateJWT(username string, scopes []string) (string, error) {
	claims := jwt.MapClaims{
		"sub":    username,
		"scopes": scopes,
		"exp":    time.Now().Add(time.Hour * 24 * 3).Unix(), // expires in 3 days
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	// parse token
	jwtToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	// isValid
	if !jwtToken.Valid {
		return nil, errors.New("token invalid")
	}

	return jwtToken, nil
}

func GetDataFromToken(token *jwt.Token) (string, []string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, errors.New("invalid token claims")
	}

	username, _ := claims["sub"].(string)

	rawScopes, ok := claims["scopes"].([]interface{})
	if !ok {
		return "", nil, errors.New("token has no scopes")
	}
	scopes := make([]string, 0, len(rawScopes))
	for _, s := range rawScopes {
		str, ok := s.(string)
		if !ok {
			return "", nil, errors.New("invalid scope claim")
		}
		scopes = append(scopes, str)
	}

	return username, scopes, nil
}
