package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Ackberry/cinetune/internal/audit"
	"github.com/Ackberry/cinetune/internal/domain"
	"github.com/Ackberry/cinetune/internal/repository"
)

var (
	ErrInvalidMediaType  = errors.New("invalid media type")
	ErrMissingExternalID = errors.New("external id is required")
	ErrItemNotFound      = errors.New("library item not found")
)

// libraryServiceImpl implements LibraryService interface.
type libraryServiceImpl struct {
	repo repository.LibraryRepository
}

// NewLibraryService creates a new library service.
func NewLibraryService(repo repository.LibraryRepository) LibraryService {
	return &libraryServiceImpl{repo: repo}
}

// Save adds a catalog item to the user's library.
func (s *libraryServiceImpl) Save(ctx context.Context, userID string, req *domain.SaveLibraryItemRequest) (*domain.LibraryItem, error) {
	if !req.MediaType.Valid() {
		return nil, ErrInvalidMediaType
	}
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, ErrMissingExternalID
	}

	item := &domain.LibraryItem{
		ID:         uuid.New().String(),
		UserID:     userID,
		MediaType:  req.MediaType,
		ExternalID: externalID,
		Metadata:   req.Metadata,
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionSaveItem, userID, externalID, "library item saved")

	return item, nil
}

// List returns the user's library grouped by media type, newest first.
func (s *libraryServiceImpl) List(ctx context.Context, userID string) (*domain.LibraryResponse, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &domain.LibraryResponse{
		Movies: []domain.LibraryItem{},
		Music:  []domain.LibraryItem{},
	}
	for _, item := range items {
		switch item.MediaType {
		case domain.MediaTypeMovie:
			resp.Movies = append(resp.Movies, item)
		case domain.MediaTypeMusic:
			resp.Music = append(resp.Music, item)
		}
	}
	return resp, nil
}

// Remove deletes an item from the user's library.
func (s *libraryServiceImpl) Remove(ctx context.Context, userID, itemID string) error {
	if err := s.repo.Delete(ctx, itemID, userID); err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionRemoveItem, userID, itemID, "library item removed")

	return nil
}
