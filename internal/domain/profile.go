package domain

import "time"

// Profile is a user's public identity. Its ID doubles as the auth user id.
type Profile struct {
	ID           string
	Email        string
	Username     string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RegisterRequest represents a signup request.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents a token refresh request.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdateProfileRequest represents a settings update. Nil fields are unchanged.
type UpdateProfileRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// SearchProfilesRequest represents a discover-page search.
type SearchProfilesRequest struct {
	Query string `form:"q"`
	Limit int    `form:"limit"`
}

// ProfileResponse is a profile in API responses.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResponse carries the profile and token pair after register/login/refresh.
type AuthResponse struct {
	Profile      ProfileResponse `json:"profile"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    int64           `json:"expires_at"`
}

// ToResponse converts Profile to ProfileResponse.
func (p *Profile) ToResponse() ProfileResponse {
	return ProfileResponse{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		CreatedAt:   p.CreatedAt,
	}
}

// DisplayLabel is the name shown in chat headers and member lists.
func (p *Profile) DisplayLabel() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
