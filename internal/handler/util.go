package handler

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity carried by a verified session token.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// header does a case-insensitive lookup in the proxy request headers.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// cookieValue extracts a single cookie from the Cookie header.
func cookieValue(req events.APIGatewayProxyRequest, name string) string {
	cookies := header(req, "Cookie")
	if cookies == "" {
		return ""
	}
	for _, part := range strings.Split(cookies, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, name+"=") {
			return strings.TrimPrefix(part, name+"=")
		}
	}
	return ""
}

// SessionFromRequest extracts and verifies the session from the
// Authorization header or the session cookie.
func SessionFromRequest(req events.APIGatewayProxyRequest, jwtSecret string) (Session, error) {
	// 1. Check Authorization Header (Bearer <token>)
	tokenString := ""
	authHeader := header(req, "Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	// 2. Check Cookie
	if tokenString == "" {
		tokenString = cookieValue(req, "session_token")
	}

	if tokenString == "" {
		return Session{}, fmt.Errorf("no authorization token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Session{}, fmt.Errorf("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Session{}, fmt.Errorf("invalid token claims")
	}

	s := Session{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		s.Name = name
	}
	return s, nil
}
