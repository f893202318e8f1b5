// Package auth signs users up and in, and turns bearer tokens back into
// sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/db"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

const (
	issuer            = "roomwatch-service"
	MinPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	db     *db.DB
	secret []byte
	ttl    time.Duration
}

func NewService(d *db.DB, secret string, ttl time.Duration) *Service {
	return &Service{db: d, secret: []byte(secret), ttl: ttl}
}

func logger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameRoomwatchCore, zap.String(common.LoggerFieldCategory, common.LoggerCategoryProfile))
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", models.ErrValidation, email)
	}
	return email, nil
}

// SignUp creates a profile and returns it with a fresh token.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (models.Profile, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Profile{}, "", err
	}
	if len(password) < MinPasswordLength {
		return models.Profile{}, "", fmt.Errorf("%w: password must be at least %d characters", models.ErrValidation, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Profile{}, "", err
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}
	profile := models.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		return tx.Create(&profile).Error
	})
	if err != nil {
		return models.Profile{}, "", err
	}

	logger().Info("Profile created", zap.String("user_id", profile.ID))

	token, err := s.IssueToken(profile)
	return profile, token, err
}

func (s *Service) Login(ctx context.Context, email, password string) (models.Profile, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return models.Profile{}, "", ErrInvalidCredentials
	}

	var profile models.Profile
	if err := s.db.Conn.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Profile{}, "", ErrInvalidCredentials
		}
		return models.Profile{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		logger().Info("Login rejected", zap.String("user_id", profile.ID))
		return models.Profile{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(profile)
	return profile, token, err
}

func (s *Service) IssueToken(profile models.Profile) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: profile.ID,
		Email:  profile.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies signature and expiry.
func (s *Service) ParseToken(tokenString string) (*models.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &models.Session{UserID: claims.UserID, Email: claims.Email}, nil
}

// BearerToken strips the scheme from an Authorization header value.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:]), true
	}
	return "", false
}
