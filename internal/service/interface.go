package service

import (
	"context"

	"github.com/Ackberry/cinetune/internal/domain"
)

// ProfileService defines auth and profile business logic.
type ProfileService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error)
	RefreshToken(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*domain.ProfileResponse, error)
	GetProfileByUsername(ctx context.Context, username string) (*domain.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.ProfileResponse, error)
	Discover(ctx context.Context, req *domain.SearchProfilesRequest) ([]domain.ProfileResponse, error)
}

// ConversationService defines conversation bootstrap and listing logic.
type ConversationService interface {
	StartDirect(ctx context.Context, userID string, req *domain.StartDirectRequest) (*domain.ConversationResponse, error)
	CreateGroup(ctx context.Context, userID string, req *domain.CreateGroupRequest) (*domain.ConversationResponse, error)
	ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error)
	ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]domain.Message, error)
	SendMessage(ctx context.Context, userID, conversationID string, req *domain.SendMessageRequest) (*domain.Message, error)
}

// LibraryService defines saved-item business logic.
type LibraryService interface {
	Save(ctx context.Context, userID string, req *domain.SaveLibraryItemRequest) (*domain.LibraryItem, error)
	List(ctx context.Context, userID string) (*domain.LibraryResponse, error)
	Remove(ctx context.Context, userID, itemID string) error
}

// CatalogService fronts the upstream movie and music catalogs with caching
// and request deduplication.
type CatalogService interface {
	SearchMovies(ctx context.Context, query string) (*domain.MovieListResponse, error)
	TrendingMovies(ctx context.Context, window string) (*domain.MovieListResponse, error)
	SearchTracks(ctx context.Context, query string) (*domain.TrackListResponse, error)
	TopTracks(ctx context.Context) (*domain.TrackListResponse, error)
}
