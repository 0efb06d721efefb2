package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const magicLinkTTL = 15 * time.Minute

// MailSender delivers the magic-link email. Delivery is an external
// collaborator; when nil, the link is only returned to the caller
// (development mode).
type MailSender func(to, magicLink string) error

type magicToken struct {
	email   string
	expires time.Time
}

// AuthService issues magic-link tokens and JWTs identifying the owner.
type AuthService struct {
	mu        sync.Mutex
	tokens    map[string]magicToken
	jwtSecret []byte
	sendMail  MailSender
}

func NewAuthService(sendMail MailSender) *AuthService {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-default-secret-key-change-in-production"
	}

	return &AuthService{
		tokens:    make(map[string]magicToken),
		jwtSecret: []byte(jwtSecret),
		sendMail:  sendMail,
	}
}

// GenerateMagicLink creates a one-time login token and returns the link.
func (s *AuthService) GenerateMagicLink(email string, baseURL string) (string, error) {
	token, err := generateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.mu.Lock()
	s.tokens[token] = magicToken{email: email, expires: time.Now().Add(magicLinkTTL)}
	s.mu.Unlock()

	magicLink := fmt.Sprintf("%s/api/auth/magic-link?token=%s", baseURL, token)

	if s.sendMail != nil {
		if err := s.sendMail(email, magicLink); err != nil {
			return "", fmt.Errorf("failed to send magic link: %w", err)
		}
	}

	return magicLink, nil
}

// VerifyMagicLinkToken redeems a one-time token and returns the email.
func (s *AuthService) VerifyMagicLinkToken(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tokens[token]
	if !exists {
		return "", errors.New("invalid or expired token")
	}

	// One-time use
	delete(s.tokens, token)

	if time.Now().After(entry.expires) {
		return "", errors.New("invalid or expired token")
	}
	return entry.email, nil
}

// CreateJWT generates a JWT token for an owner
func (s *AuthService) CreateJWT(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"exp":   time.Now().Add(time.Hour * 24 * 7).Unix(), // 7 days
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyJWT verifies a JWT token and returns the owner's email
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	email, ok := claims["email"].(string)
	if !ok {
		return "", errors.New("email claim missing")
	}

	return email, nil
}

func generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
