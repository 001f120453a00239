package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"subcatalog/internal/cache"
	"subcatalog/internal/dto"
	"subcatalog/internal/logger"
	"subcatalog/internal/models"
	"subcatalog/internal/notify"
	"subcatalog/internal/repositories"
	"subcatalog/pkg/apperrors"
)

// DefaultCacheTTL bounds how stale a cached catalog read may be.
const DefaultCacheTTL = time.Hour

type SubscriptionService interface {
	// Public catalog reads
	GetAll(ctx context.Context) ([]dto.SubscriptionResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.SubscriptionResponse, error)
	GetByCategory(ctx context.Context, category string) ([]dto.SubscriptionResponse, error)
	GetAllCategories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, term string) ([]dto.SubscriptionResponse, error)

	// Admin writes
	Create(ctx context.Context, req *dto.SubscriptionRequest) (*dto.SubscriptionResponse, error)
	Update(ctx context.Context, id uint, req *dto.SubscriptionRequest) (*dto.SubscriptionResponse, error)
	Deactivate(ctx context.Context, id uint) error
	Activate(ctx context.Context, id uint) (*dto.SubscriptionResponse, error)

	// Admin reads
	GetByIDForAdmin(ctx context.Context, id uint) (*dto.SubscriptionResponse, error)
	GetAllForAdmin(ctx context.Context, q dto.PageQuery) (*dto.PagedSubscriptions, error)
	SearchForAdmin(ctx context.Context, term string, page, size int) (*dto.PagedSubscriptions, error)
	Statistics(ctx context.Context) (*dto.Statistics, error)
}

type subscriptionService struct {
	repo       repositories.SubscriptionRepository
	cache      cache.Cache
	notifier   notify.Notifier
	adminEmail string
	cacheTTL   time.Duration
}

func NewSubscriptionService(
	repo repositories.SubscriptionRepository,
	c cache.Cache,
	notifier notify.Notifier,
	adminEmail string,
	cacheTTL time.Duration,
) SubscriptionService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &subscriptionService{
		repo:       repo,
		cache:      c,
		notifier:   notifier,
		adminEmail: adminEmail,
		cacheTTL:   cacheTTL,
	}
}

// --- Public catalog reads (cache-aside) ---

func (s *subscriptionService) GetAll(ctx context.Context) ([]dto.SubscriptionResponse, error) {
	var cached []dto.SubscriptionResponse
	if s.cacheGet(ctx, cache.KeyAllActive, &cached) {
		return cached, nil
	}

	subs, err := s.repo.FindByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, err
	}

	result := dto.ToResponseList(subs)
	s.cacheSet(ctx, cache.KeyAllActive, result)
	return result, nil
}

func (s *subscriptionService) GetByID(ctx context.Context, id uint) (*dto.SubscriptionResponse, error) {
	key := cache.KeyByID(id)

	var cached dto.SubscriptionResponse
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound(err)
		}
		return nil, err
	}
	// Soft-deleted records are invisible on the public path.
	if !sub.IsActive() {
		return nil, apperrors.ErrSubscriptionNotFound(repositories.ErrSubscriptionNotFound)
	}

	result := dto.ToResponse(sub)
	s.cacheSet(ctx, key, result)
	return &result, nil
}

func (s *subscriptionService) GetByCategory(ctx context.Context, category string) ([]dto.SubscriptionResponse, error) {
	key := cache.KeyByCategory(category)

	var cached []dto.SubscriptionResponse
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	subs, err := s.repo.FindByCategoryAndStatus(ctx, category, models.StatusActive)
	if err != nil {
		return nil, err
	}

	result := dto.ToResponseList(subs)
	s.cacheSet(ctx, key, result)
	return result, nil
}

func (s *subscriptionService) GetAllCategories(ctx context.Context) ([]string, error) {
	var cached []string
	if s.cacheGet(ctx, cache.KeyAllCategories, &cached) {
		return cached, nil
	}

	categories, err := s.repo.FindDistinctActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}

	s.cacheSet(ctx, cache.KeyAllCategories, categories)
	return categories, nil
}

// Search always hits the store: result sets are too numerous to cache
// economically.
func (s *subscriptionService) Search(ctx context.Context, term string) ([]dto.SubscriptionResponse, error) {
	subs, err := s.repo.SearchActiveByName(ctx, term)
	if err != nil {
		return nil, err
	}
	return dto.ToResponseList(subs), nil
}

// --- Admin writes ---

func (s *subscriptionService) Create(ctx context.Context, req *dto.SubscriptionRequest) (*dto.SubscriptionResponse, error) {
	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrSubscriptionExists(req.Name)
	}

	sub := &models.Subscription{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		Currency:      req.Currency,
		Category:      req.Category,
		BillingPeriod: req.BillingPeriod,
		WebsiteURL:    req.WebsiteURL,
		LogoURL:       req.LogoURL,
		Status:        models.StatusActive,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		// Lost the race with a concurrent create on the same name; the
		// unique index is the arbiter.
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, apperrors.ErrSubscriptionExists(req.Name)
		}
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription created", "id", sub.ID, "name", sub.Name)
	s.invalidateGlobalKeys(ctx)
	s.notify(ctx, notify.EventCreated, sub.Name)

	result := dto.ToResponse(sub)
	return &result, nil
}

func (s *subscriptionService) Update(ctx context.Context, id uint, req *dto.SubscriptionRequest) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound(err)
		}
		return nil, err
	}
	if !sub.IsActive() {
		return nil, apperrors.ErrSubscriptionNotFound(repositories.ErrSubscriptionNotFound)
	}

	if req.Name != sub.Name {
		exists, err := s.repo.ExistsByName(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.ErrSubscriptionExists(req.Name)
		}
	}

	sub.Name = req.Name
	sub.Description = req.Description
	sub.Price = req.Price
	sub.Currency = req.Currency
	sub.Category = req.Category
	sub.BillingPeriod = req.BillingPeriod
	sub.WebsiteURL = req.WebsiteURL
	sub.LogoURL = req.LogoURL

	if err := s.repo.Save(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrDuplicateName) {
			return nil, apperrors.ErrSubscriptionExists(req.Name)
		}
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription updated", "id", sub.ID, "name", sub.Name)
	s.invalidateGlobalKeys(ctx)
	s.notify(ctx, notify.EventUpdated, sub.Name)

	result := dto.ToResponse(sub)
	return &result, nil
}

// Deactivate soft-deletes. Deactivating an already-inactive record is
// idempotent and succeeds; only a missing id is NotFound.
func (s *subscriptionService) Deactivate(ctx context.Context, id uint) error {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return apperrors.ErrSubscriptionNotFound(err)
		}
		return err
	}

	sub.Status = models.StatusInactive
	if err := s.repo.Save(ctx, sub); err != nil {
		return err
	}

	logger.CtxInfo(ctx, "subscription deactivated", "id", sub.ID, "name", sub.Name)
	s.invalidateGlobalKeys(ctx)
	s.notify(ctx, notify.EventDeactivated, sub.Name)
	return nil
}

func (s *subscriptionService) Activate(ctx context.Context, id uint) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound(err)
		}
		return nil, err
	}

	sub.Status = models.StatusActive
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "subscription activated", "id", sub.ID, "name", sub.Name)
	s.invalidateGlobalKeys(ctx)
	s.notify(ctx, notify.EventActivated, sub.Name)

	result := dto.ToResponse(sub)
	return &result, nil
}

// --- Admin reads ---

func (s *subscriptionService) GetByIDForAdmin(ctx context.Context, id uint) (*dto.SubscriptionResponse, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, apperrors.ErrSubscriptionNotFound(err)
		}
		return nil, err
	}

	result := dto.ToResponse(sub)
	return &result, nil
}

func (s *subscriptionService) GetAllForAdmin(ctx context.Context, q dto.PageQuery) (*dto.PagedSubscriptions, error) {
	var status *models.Status
	if q.IsActive != nil {
		st := models.StatusInactive
		if *q.IsActive {
			st = models.StatusActive
		}
		status = &st
	}

	subs, total, err := s.repo.FindPage(ctx, q.Page, q.Size, q.SortBy, q.SortDir, status)
	if err != nil {
		return nil, err
	}

	return s.toPage(subs, total, q.Page, q.Size), nil
}

func (s *subscriptionService) SearchForAdmin(ctx context.Context, term string, page, size int) (*dto.PagedSubscriptions, error) {
	subs, total, err := s.repo.SearchPage(ctx, term, page, size)
	if err != nil {
		return nil, err
	}
	return s.toPage(subs, total, page, size), nil
}

// Statistics are always computed fresh from the store, never cached.
func (s *subscriptionService) Statistics(ctx context.Context) (*dto.Statistics, error) {
	active, err := s.repo.CountByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, err
	}
	inactive, err := s.repo.CountByStatus(ctx, models.StatusInactive)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.CountDistinctActiveCategories(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.repo.CountActiveByCategory(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.Statistics{
		ActiveSubscriptions:     active,
		InactiveSubscriptions:   inactive,
		TotalSubscriptions:      active + inactive,
		ActiveCategories:        categories,
		SubscriptionsByCategory: byCategory,
	}, nil
}

// --- Cache plumbing ---

// cacheGet reports whether key held a usable value. Any cache failure,
// including a corrupt entry, is treated as a miss and never surfaces.
func (s *subscriptionService) cacheGet(ctx context.Context, key string, dest any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.CtxWarn(ctx, "cache read failed, falling back to store", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		logger.CtxWarn(ctx, "corrupt cache entry, falling back to store", "key", key, "error", err)
		return false
	}
	return true
}

func (s *subscriptionService) cacheSet(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.CtxWarn(ctx, "failed to marshal value for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		logger.CtxWarn(ctx, "cache write failed", "key", key, "error", err)
	}
}

// invalidateGlobalKeys drops the two coarse list keys before the write call
// returns, so the next read recomputes from the store. Per-id and
// per-category keys are left to expire within the TTL.
func (s *subscriptionService) invalidateGlobalKeys(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyAllActive, cache.KeyAllCategories); err != nil {
		logger.CtxWarn(ctx, "cache invalidation failed", "error", err)
	}
}

func (s *subscriptionService) notify(ctx context.Context, event notify.Event, name string) {
	if s.adminEmail == "" {
		return
	}
	if err := s.notifier.Notify(event, s.adminEmail, name); err != nil {
		logger.CtxWarn(ctx, "notification delivery failed", "event", string(event), "subscription", name, "error", err)
	}
}

func (s *subscriptionService) toPage(subs []models.Subscription, total int64, page, size int) *dto.PagedSubscriptions {
	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &dto.PagedSubscriptions{
		Content:     dto.ToResponseList(subs),
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  totalPages,
	}
}
