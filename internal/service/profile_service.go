package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ackberry/cinetune/internal/audit"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/repository"
	"github.com/Ackberry/cinetune/pkg/jwt"
	"github.com/Ackberry/cinetune/pkg/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrProfileNotFound    = errors.New("profile not found")
)

const (
	defaultDiscoverLimit = 20
	maxDiscoverLimit     = 50
)

// profileServiceImpl implements ProfileService interface.
type profileServiceImpl struct {
	repo repository.ProfileRepository
	jwt  *jwt.Manager
}

// NewProfileService creates a new profile service.
func NewProfileService(repo repository.ProfileRepository, jwtManager *jwt.Manager) ProfileService {
	return &profileServiceImpl{
		repo: repo,
		jwt:  jwtManager,
	}
}

// Register creates a profile and returns a token pair.
func (s *profileServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error().Err(err).Msg("failed to hash password")
		return nil, err
	}

	profile := &domain.Profile{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     normalizeUsername(req.Username),
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionRegister, profile.ID, "user registered")

	return s.authResponse(ctx, profile)
}

// Login authenticates by email and password.
func (s *profileServiceImpl) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	profile, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			audit.LogWithDetail(ctx, audit.ActionLoginFailed, "", req.Email, "login failed: profile not found")
			return nil, ErrInvalidCredentials
		}
		l.Error().Err(err).Msg("failed to get profile by email")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
		audit.LogWithDetail(ctx, audit.ActionLoginFailed, profile.ID, req.Email, "login failed: wrong password")
		return nil, ErrInvalidCredentials
	}

	audit.Log(ctx, audit.ActionLogin, profile.ID, "user logged in")

	return s.authResponse(ctx, profile)
}

// RefreshToken rotates the token pair.
func (s *profileServiceImpl) RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error) {
	claims, err := s.jwt.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	accessToken, refreshToken, expiresAt, err := s.jwt.RefreshTokens(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	audit.Log(ctx, audit.ActionRefreshToken, profile.ID, "token refreshed")

	return &domain.AuthResponse{
		Profile:      profile.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout records the logout. Tokens are stateless; nothing is revoked here.
func (s *profileServiceImpl) Logout(ctx context.Context, userID string) error {
	audit.Log(ctx, audit.ActionLogout, userID, "user logged out")
	return nil
}

// GetProfile returns a profile by id.
func (s *profileServiceImpl) GetProfile(ctx context.Context, userID string) (*domain.ProfileResponse, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	resp := profile.ToResponse()
	return &resp, nil
}

// GetProfileByUsername returns the public profile behind a profile page URL.
func (s *profileServiceImpl) GetProfileByUsername(ctx context.Context, username string) (*domain.ProfileResponse, error) {
	profile, err := s.repo.GetByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	resp := profile.ToResponse()
	return &resp, nil
}

// UpdateProfile applies a settings update. Nil request fields are unchanged.
func (s *profileServiceImpl) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.ProfileResponse, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if req.Username != nil {
		profile.Username = normalizeUsername(*req.Username)
	}
	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.ActionUpdateProfile, userID, "profile updated")

	resp := profile.ToResponse()
	return &resp, nil
}

// Discover lists profiles for the discover page. An empty query falls back
// to the most recently created profiles.
func (s *profileServiceImpl) Discover(ctx context.Context, req *domain.SearchProfilesRequest) ([]domain.ProfileResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultDiscoverLimit
	}
	if limit > maxDiscoverLimit {
		limit = maxDiscoverLimit
	}

	var profiles []domain.Profile
	var err error

	query := strings.TrimSpace(req.Query)
	if query == "" {
		profiles, err = s.repo.Recent(ctx, limit)
	} else {
		profiles, err = s.repo.Search(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]domain.ProfileResponse, len(profiles))
	for i := range profiles {
		responses[i] = profiles[i].ToResponse()
	}
	return responses, nil
}

func (s *profileServiceImpl) authResponse(ctx context.Context, profile *domain.Profile) (*domain.AuthResponse, error) {
	l := log.Ctx(ctx)

	accessToken, refreshToken, expiresAt, err := s.jwt.GenerateTokenPair(profile.ID, profile.Username)
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, profile.ID).Msg("failed to generate tokens")
		return nil, err
	}

	return &domain.AuthResponse{
		Profile:      profile.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
