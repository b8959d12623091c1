package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/whatifmusic/beatwave/internal/gate"
	"github.com/whatifmusic/beatwave/internal/models"
	"github.com/whatifmusic/beatwave/libs/apperrors"
	"github.com/whatifmusic/beatwave/libs/auth/roles"
	"github.com/whatifmusic/beatwave/libs/auth/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the interface that wraps methods for users table data access
type UserRepository interface {
	// Method Create inserts a new user together with its profile.
	//
	// "user" parameter must have its ID set and "profile" must carry the same ID.
	// Either both rows are stored or none is.
	//
	// If some error occurs during user creation, the error will be returned.
	Create(ctx context.Context, user *models.User, profile *models.Profile) error
	// Method GetByEmail retrieves a user by email.
	//
	// If user with such email does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserTokenRepository is the interface that wraps methods for user_tokens table data access
type UserTokenRepository interface {
	// Method Create stores a refresh token issued to a user.
	Create(ctx context.Context, userToken *models.UserToken) error
	// Method GetByToken retrieves a user token by token string.
	//
	// If the token is unknown, an error wrapping apperrors.ErrUnauthenticated is returned.
	GetByToken(ctx context.Context, token string) (*models.UserToken, error)
	// Method Rotate replaces "oldToken" of "userID" with "newToken".
	//
	// If the old token is unknown, an error wrapping apperrors.ErrUnauthenticated is returned.
	Rotate(ctx context.Context, oldToken, newToken, userID string) error
	// Method DeleteByToken deletes a user token. Deleting an unknown token is not an error.
	DeleteByToken(ctx context.Context, token string) error
}

// ProfileRepository is the interface that wraps methods for profiles table data access
type ProfileRepository interface {
	// Method GetByID retrieves a profile by user id.
	//
	// If the profile does not exist, an error wrapping apperrors.ErrNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type authService struct {
	userRepo       UserRepository
	userTokenRepo  UserTokenRepository
	profileRepo    ProfileRepository
	tokenGenerator *service.TokenGenerator
	logger         *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	userTokenRepo UserTokenRepository,
	profileRepo ProfileRepository,
	tokenGenerator *service.TokenGenerator,
	logger *zap.Logger,
) *authService {
	return &authService{
		userRepo:       userRepo,
		userTokenRepo:  userTokenRepo,
		profileRepo:    profileRepo,
		tokenGenerator: tokenGenerator,
		logger:         logger,
	}
}

// passwordRegex validates password: at least 8 chars, uppercase, lowercase, number, special: !_?^&+-=|
var passwordRegex = []*regexp.Regexp{
	regexp.MustCompile(`.{8,}`),
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`[0-9]`),
	regexp.MustCompile(`[!_?^&+\-=|@#$%*.]`),
}

const maxDisplayNameLength = 100

// SignUp creates a user with a "user" profile and returns a fresh token pair
func (s *authService) SignUp(ctx context.Context, req *models.SignUpRequest) (string, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !gate.ValidateEmail(email) {
		return "", "", fmt.Errorf("%w: invalid email format", apperrors.ErrInvalidInput)
	}
	if err := validatePassword(req.Password); err != nil {
		return "", "", err
	}
	displayName, err := normalizeDisplayName(req.DisplayName)
	if err != nil {
		return "", "", err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return "", "", fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return "", "", fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(passwordHash),
	}

	// Every identity gets a profile with the default role
	profile := &models.Profile{
		ID:   user.ID,
		Role: roles.RoleUser,
	}
	if displayName != "" {
		profile.DisplayName = &displayName
	}
	if err := s.userRepo.Create(ctx, user, profile); err != nil {
		return "", "", err
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return s.generateAndSaveTokens(ctx, user.ID)
}

// SignIn verifies the credentials and returns a fresh token pair
func (s *authService) SignIn(ctx context.Context, req *models.SignInRequest) (string, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return "", "", fmt.Errorf("%w: email and password are required", apperrors.ErrInvalidInput)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
	}
	if err != nil {
		return "", "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", "", fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
	}

	return s.generateAndSaveTokens(ctx, user.ID)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh token stops working.
//
// The signature check and the database lookup do not depend on each other, so they run in parallel.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", "", fmt.Errorf("%w: refresh token is required", apperrors.ErrUnauthenticated)
	}

	errorChan := make(chan error, 2)
	userTokenChan := make(chan *models.UserToken, 1) // Buffered to prevent goroutine leak

	go func() {
		userToken, err := s.userTokenRepo.GetByToken(ctx, refreshToken)
		if err != nil {
			userTokenChan <- nil
			errorChan <- err
			return
		}
		userTokenChan <- userToken
		errorChan <- nil
	}()

	go func() {
		if err := s.tokenGenerator.ValidateRefreshToken(refreshToken); err != nil {
			// Expired tokens are useless, drop them right away
			if err := s.userTokenRepo.DeleteByToken(ctx, refreshToken); err != nil {
				s.logger.Warn("failed to delete invalid refresh token", zap.Error(err))
			}
			errorChan <- fmt.Errorf("%w: invalid or expired refresh token", apperrors.ErrUnauthenticated)
			return
		}
		errorChan <- nil
	}()

	var firstErr error
	for range 2 {
		if err := <-errorChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	userToken := <-userTokenChan
	if firstErr != nil {
		return "", "", firstErr
	}

	accessToken, newRefreshToken, err := s.tokenGenerator.GenerateTokens(userToken.UserID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.userTokenRepo.Rotate(ctx, refreshToken, newRefreshToken, userToken.UserID); err != nil {
		return "", "", err
	}

	return accessToken, newRefreshToken, nil
}

// SignOut revokes the refresh token. An empty or unknown token is not an error.
func (s *authService) SignOut(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	if err := s.userTokenRepo.DeleteByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Session returns the identity and profile of an authenticated user.
// A user without a profile still has a session; Profile is nil then.
func (s *authService) Session(ctx context.Context, userID string) (*models.SessionResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: user no longer exists", apperrors.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}

	resp := &models.SessionResponse{UserID: user.ID, Email: user.Email}

	profile, err := s.profileRepo.GetByID(ctx, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		s.logger.Warn("user has no profile", zap.String("user_id", userID))
	case err != nil:
		return nil, err
	default:
		resp.Profile = profile
	}

	return resp, nil
}

// generateAndSaveTokens issues a token pair and stores the refresh token
func (s *authService) generateAndSaveTokens(ctx context.Context, userID string) (string, string, error) {
	accessToken, refreshToken, err := s.tokenGenerator.GenerateTokens(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate tokens: %w", err)
	}

	userToken := &models.UserToken{
		UserID: userID,
		Token:  refreshToken,
	}
	if err := s.userTokenRepo.Create(ctx, userToken); err != nil {
		return "", "", fmt.Errorf("failed to save refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

func validatePassword(password string) error {
	for _, regex := range passwordRegex {
		if !regex.MatchString(password) {
			return fmt.Errorf("%w: password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, one number, and one special character", apperrors.ErrInvalidInput)
		}
	}
	return nil
}

func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > maxDisplayNameLength {
		return "", fmt.Errorf("%w: display name must be at most %d characters", apperrors.ErrInvalidInput, maxDisplayNameLength)
	}
	return name, nil
}
