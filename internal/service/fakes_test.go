package service

import (
	"context"
	"sync"
	"time"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/repository"
	"github.com/google/uuid"
)

// The fakes below are mutex-guarded in-memory repositories with the same
// conditional-update semantics as the mongo adapter, so the concurrency tests
// exercise the real arbitration logic instead of scripted mock returns.

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*entity.Order)}
}

func (f *fakeOrderRepo) Create(_ context.Context, order *entity.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.orders {
		if existing.BuyerID == order.BuyerID && existing.IdempotencyKey == order.IdempotencyKey {
			return repository.ErrAlreadyExists
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, orderID string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) GetByIdempotencyKey(_ context.Context, buyerID, key string) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.BuyerID == buyerID && order.IdempotencyKey == key {
			cp := *order
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrderRepo) TransitionStatus(_ context.Context, params repository.TransitionParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[params.OrderID]
	if !ok {
		return repository.ErrNotFound
	}
	if order.Status != params.From {
		return repository.ErrCASFailed
	}
	order.Status = params.To
	order.UpdatedAt = time.Now().UTC()
	if params.To == entity.StatusCanceled {
		order.CanceledBy = params.CanceledBy
		order.CanceledAt = params.CanceledAt
	}
	return nil
}

func (f *fakeOrderRepo) List(_ context.Context, filter entity.OrderFilter) (*repository.ListOrdersResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Order
	for _, order := range f.orders {
		if filter.BuyerID != "" && order.BuyerID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && order.SellerID != filter.SellerID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		out = append(out, *order)
	}
	return &repository.ListOrdersResult{Orders: out, TotalCount: int64(len(out))}, nil
}

type fakeListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
}

func newFakeListingRepo() *fakeListingRepo {
	return &fakeListingRepo{listings: make(map[string]*entity.Listing)}
}

func (f *fakeListingRepo) Create(_ context.Context, listing *entity.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	cp := *listing
	f.listings[listing.ID] = &cp
	return nil
}

func (f *fakeListingRepo) GetByID(_ context.Context, listingID string) (*entity.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[listingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *listing
	return &cp, nil
}

func (f *fakeListingRepo) Reserve(_ context.Context, listingID string) error {
	return f.flip(listingID, entity.ListingOnSale, entity.ListingSold, false)
}

func (f *fakeListingRepo) Release(_ context.Context, listingID string) error {
	err := f.flip(listingID, entity.ListingSold, entity.ListingOnSale, true)
	if err == repository.ErrCASFailed {
		return nil
	}
	return err
}

func (f *fakeListingRepo) SoftRemove(_ context.Context, listingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[listingID]
	if !ok {
		return repository.ErrNotFound
	}
	listing.Status = entity.ListingRemoved
	return nil
}

func (f *fakeListingRepo) flip(listingID string, from, to entity.ListingStatus, tolerateMissing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	listing, ok := f.listings[listingID]
	if !ok {
		if tolerateMissing {
			return nil
		}
		return repository.ErrNotFound
	}
	if listing.Status != from {
		return repository.ErrCASFailed
	}
	listing.Status = to
	return nil
}

func (f *fakeListingRepo) Search(_ context.Context, filter entity.ListingFilter) (*repository.ListListingsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Listing
	for _, listing := range f.listings {
		if filter.Status != "" && listing.Status != filter.Status {
			continue
		}
		if filter.SellerID != "" && listing.SellerID != filter.SellerID {
			continue
		}
		out = append(out, *listing)
	}
	return &repository.ListListingsResult{Listings: out, TotalCount: int64(len(out))}, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return repository.ErrAlreadyExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, userID string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) SetActive(_ context.Context, userID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	return nil
}

type fakeReviewRepo struct {
	mu      sync.Mutex
	reviews map[string]*entity.Review
}

func newFakeReviewRepo() *fakeReviewRepo {
	return &fakeReviewRepo{reviews: make(map[string]*entity.Review)}
}

func (f *fakeReviewRepo) Create(_ context.Context, review *entity.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.OrderID == review.OrderID {
			return repository.ErrAlreadyExists
		}
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	cp := *review
	f.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviewRepo) GetByID(_ context.Context, reviewID string) (*entity.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[reviewID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *review
	return &cp, nil
}

func (f *fakeReviewRepo) SoftDelete(_ context.Context, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	review, ok := f.reviews[reviewID]
	if !ok {
		return repository.ErrNotFound
	}
	review.Deleted = true
	return nil
}

func (f *fakeReviewRepo) List(_ context.Context, filter entity.ReviewFilter) (*repository.ListReviewsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Review
	for _, review := range f.reviews {
		if filter.ListingID != "" && review.ListingID != filter.ListingID {
			continue
		}
		if filter.BuyerID != "" && review.BuyerID != filter.BuyerID {
			continue
		}
		if !filter.IncludeDeleted && review.Deleted {
			continue
		}
		out = append(out, *review)
	}
	return &repository.ListReviewsResult{Reviews: out, TotalCount: int64(len(out))}, nil
}

type fakeIdemRepo struct {
	mu      sync.Mutex
	records map[string]*entity.IdempotencyRecord
}

func newFakeIdemRepo() *fakeIdemRepo {
	return &fakeIdemRepo{records: make(map[string]*entity.IdempotencyRecord)}
}

func idemKey(buyerID, key string) string { return buyerID + "\x00" + key }

func (f *fakeIdemRepo) InsertPending(_ context.Context, buyerID, key string, leaseUntil time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idemKey(buyerID, key)
	if _, ok := f.records[k]; ok {
		return repository.ErrAlreadyExists
	}
	f.records[k] = &entity.IdempotencyRecord{
		BuyerID:    buyerID,
		Key:        key,
		State:      entity.IdemPending,
		LeaseUntil: leaseUntil,
		CreatedAt:  time.Now().UTC(),
	}
	return nil
}

func (f *fakeIdemRepo) Get(_ context.Context, buyerID, key string) (*entity.IdempotencyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[idemKey(buyerID, key)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (f *fakeIdemRepo) TakeoverLease(_ context.Context, buyerID, key string, leaseUntil time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[idemKey(buyerID, key)]
	if !ok || record.State != entity.IdemPending || !time.Now().UTC().After(record.LeaseUntil) {
		return repository.ErrCASFailed
	}
	record.LeaseUntil = leaseUntil
	return nil
}

func (f *fakeIdemRepo) Finalize(_ context.Context, params repository.FinalizeParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[idemKey(params.BuyerID, params.Key)]
	if !ok || record.State != entity.IdemPending {
		return repository.ErrCASFailed
	}
	record.State = params.State
	record.OrderID = params.OrderID
	record.FailureKind = params.FailureKind
	expiresAt := params.ExpiresAt
	record.ExpiresAt = &expiresAt
	return nil
}

func (f *fakeIdemRepo) DeletePending(_ context.Context, buyerID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := idemKey(buyerID, key)
	if record, ok := f.records[k]; ok && record.State == entity.IdemPending {
		delete(f.records, k)
	}
	return nil
}

// fakeTxnRunner runs fn directly. The fakes apply writes immediately, so these
// tests cover arbitration (who wins a race), not rollback.
type fakeTxnRunner struct{}

func (fakeTxnRunner) WithinTxn(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) published(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
