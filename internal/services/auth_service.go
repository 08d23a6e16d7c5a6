package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	appErr "github.com/autostack/gateway/pkg/errors"
	"github.com/autostack/gateway/pkg/logger"
	"github.com/autostack/gateway/pkg/utils"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID    uuid.UUID   `json:"id"`
	Email string      `json:"email"`
	Tier  models.Tier `json:"subscription_tier"`
}

type AuthService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	// Authenticate resolves exactly one user from a bearer token or an API key.
	Authenticate(ctx context.Context, bearer, apiKey string) (*Identity, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*models.User, error)
	IssueAPIKey(ctx context.Context, userID uuid.UUID) (string, error)
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type UpdateProfileInput struct {
	Name     *string
	Password *string
}

type authService struct {
	userRepo   repository.UserRepository
	hmacSecret []byte
	tokenTTL   time.Duration
}

func NewAuthService(userRepo repository.UserRepository, secret []byte, ttl time.Duration) AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		userRepo:   userRepo,
		hmacSecret: secret,
		tokenTTL:   ttl,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	logger.L().Info("register user", zap.String("email", email))

	if email == "" || len(input.Password) < 8 {
		return nil, appErr.New(appErr.CodeInvalid, "email and a password of at least 8 characters are required")
	}
	ph, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	user := &models.User{
		Email:            email,
		PasswordHash:     string(ph),
		Name:             strings.TrimSpace(input.Name),
		SubscriptionTier: models.TierFree,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.New(appErr.CodeConflict, "email already registered")
		}
		return nil, err
	}

	logger.L().Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return "", nil, appErr.New(appErr.CodeInvalidCredential, "invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, appErr.New(appErr.CodeInvalidCredential, "invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
	})
	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return "", nil, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}

	logger.L().Info("user logged in", zap.String("user_id", user.ID.String()))
	return tokenString, &user, nil
}

func (s *authService) Authenticate(ctx context.Context, bearer, apiKey string) (*Identity, error) {
	bearer = strings.TrimSpace(bearer)
	apiKey = strings.TrimSpace(apiKey)

	var user models.User
	switch {
	case bearer != "":
		userID, err := s.parseToken(bearer)
		if err != nil {
			return nil, err
		}
		// The token may outlive its user.
		if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
			if appErr.IsCode(err, appErr.CodeNotFound) {
				return nil, appErr.New(appErr.CodeInvalidCredential, "user no longer exists")
			}
			return nil, err
		}
	case apiKey != "":
		if err := s.userRepo.GetByAPIKeyHash(ctx, utils.HashAPIKey(apiKey), &user); err != nil {
			if appErr.IsCode(err, appErr.CodeNotFound) {
				return nil, appErr.New(appErr.CodeInvalidCredential, "invalid api key")
			}
			return nil, err
		}
	default:
		return nil, appErr.New(appErr.CodeUnauthenticated, "authentication required")
	}

	return &Identity{ID: user.ID, Email: user.Email, Tier: user.SubscriptionTier}, nil
}

func (s *authService) parseToken(raw string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.hmacSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			msg = "token expired"
		}
		return uuid.Nil, appErr.Wrap(err, appErr.CodeInvalidCredential, msg)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, appErr.Wrap(err, appErr.CodeInvalidCredential, "invalid token subject")
	}
	return id, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*models.User, error) {
	logger.L().Info("update profile", zap.String("user_id", userID.String()))

	fields := map[string]any{}
	if input.Name != nil {
		fields["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Password != nil {
		if len(*input.Password) < 8 {
			return nil, appErr.New(appErr.CodeInvalid, "password must be at least 8 characters")
		}
		ph, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
		}
		fields["password_hash"] = string(ph)
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *authService) IssueAPIKey(ctx context.Context, userID uuid.UUID) (string, error) {
	key, err := utils.GenerateAPIKey()
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "generate api key failed")
	}
	if err := s.userRepo.SetAPIKeyHash(ctx, userID, utils.HashAPIKey(key)); err != nil {
		return "", fmt.Errorf("store api key: %w", err)
	}
	logger.L().Info("api key issued", zap.String("user_id", userID.String()))
	return key, nil
}
