package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Will-hxw/1688/internal/adapter/nats"
	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/repository"
)

type CreateListingParams struct {
	Title       string
	Description string
	ImageURL    string
	Price       float64
}

type ListingService interface {
	Create(ctx context.Context, actor entity.Actor, params CreateListingParams) (*entity.Listing, error)
	GetByID(ctx context.Context, listingID string) (*entity.Listing, error)
	// Search is the public browse surface. It only ever returns ON_SALE
	// listings; moderated (REMOVED) listings are not discoverable here.
	Search(ctx context.Context, filter entity.ListingFilter) (*repository.ListListingsResult, error)
	// AdminSearch lists listings in any status, including REMOVED. Admin only.
	AdminSearch(ctx context.Context, actor entity.Actor, filter entity.ListingFilter) (*repository.ListListingsResult, error)
	// Remove takes a listing off the marketplace. The owning seller or an
	// admin; orders already placed against it are unaffected.
	Remove(ctx context.Context, actor entity.Actor, listingID string) error
}

type listingService struct {
	listingRepo repository.ListingRepository
	userRepo    repository.UserRepository
	publisher   nats.MessagePublisher
	log         logger.Logger
}

func NewListingService(
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	publisher nats.MessagePublisher,
	log logger.Logger,
) ListingService {
	return &listingService{
		listingRepo: listingRepo,
		userRepo:    userRepo,
		publisher:   publisher,
		log:         log,
	}
}

func (s *listingService) Create(ctx context.Context, actor entity.Actor, params CreateListingParams) (*entity.Listing, error) {
	if err := requireActiveUser(ctx, s.userRepo, actor); err != nil {
		return nil, err
	}

	listing, err := entity.NewListing(actor.ID, params.Title, params.Description, params.ImageURL, params.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	return listing, nil
}

func (s *listingService) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}
	return listing, nil
}

func (s *listingService) Search(ctx context.Context, filter entity.ListingFilter) (*repository.ListListingsResult, error) {
	// Pinned regardless of what the caller asked for: the public surface must
	// not expose SOLD or REMOVED listings.
	filter.Status = entity.ListingOnSale
	return s.listingRepo.Search(ctx, filter)
}

func (s *listingService) AdminSearch(ctx context.Context, actor entity.Actor, filter entity.ListingFilter) (*repository.ListListingsResult, error) {
	if !actor.IsAdmin() {
		return nil, entity.ErrForbidden
	}
	return s.listingRepo.Search(ctx, filter)
}

func (s *listingService) Remove(ctx context.Context, actor entity.Actor, listingID string) error {
	listing, err := s.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actor.ID != listing.SellerID {
		return entity.ErrForbidden
	}

	if err := s.listingRepo.SoftRemove(ctx, listingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.ErrNotFound
		}
		return fmt.Errorf("failed to remove listing %s: %w", listingID, err)
	}

	if s.publisher != nil {
		event := map[string]interface{}{
			"listing_id": listingID,
			"actor_id":   actor.ID,
		}
		if err := s.publisher.Publish(ctx, nats.SubjectListingRemoved, event); err != nil {
			s.log.Warnf("failed to publish %s for listing %s: %v", nats.SubjectListingRemoved, listingID, err)
		}
	}
	return nil
}
