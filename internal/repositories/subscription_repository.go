package repositories

import (
	"context"
	"errors"
	"strings"

	"subcatalog/internal/models"

	"gorm.io/gorm"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrDuplicateName surfaces the unique index on name. Concurrent writers
	// racing on the same name rely on this constraint, not on application
	// locks.
	ErrDuplicateName = errors.New("subscription name already taken")
)

// Columns the admin listing may sort by. Unknown values fall back to id so a
// crafted sortBy can never reach the ORDER BY clause raw.
var sortableColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"price":     "price",
	"category":  "category",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Save(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id uint) (*models.Subscription, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	FindByStatus(ctx context.Context, status models.Status) ([]models.Subscription, error)
	FindByCategoryAndStatus(ctx context.Context, category string, status models.Status) ([]models.Subscription, error)
	FindDistinctActiveCategories(ctx context.Context) ([]string, error)
	SearchActiveByName(ctx context.Context, term string) ([]models.Subscription, error)
	FindPage(ctx context.Context, page, size int, sortBy, sortDir string, status *models.Status) ([]models.Subscription, int64, error)
	SearchPage(ctx context.Context, term string, page, size int) ([]models.Subscription, int64, error)
	CountByStatus(ctx context.Context, status models.Status) (int64, error)
	CountDistinctActiveCategories(ctx context.Context) (int64, error)
	CountActiveByCategory(ctx context.Context) (map[string]int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateName
	}
	return err
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Save(sub).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateName
	}
	return err
}

func (r *subscriptionRepository) FindByID(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

func (r *subscriptionRepository) FindByStatus(ctx context.Context, status models.Status) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("name ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) FindByCategoryAndStatus(ctx context.Context, category string, status models.Status) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("category = ? AND status = ?", category, status).
		Order("price ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) FindDistinctActiveCategories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Distinct("category").
		Where("status = ?", models.StatusActive).
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

func (r *subscriptionRepository) SearchActiveByName(ctx context.Context, term string) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND name ILIKE ?", models.StatusActive, "%"+term+"%").
		Order("name ASC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) FindPage(ctx context.Context, page, size int, sortBy, sortDir string, status *models.Status) ([]models.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Subscription{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortableColumns[sortBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if strings.EqualFold(sortDir, "desc") {
		direction = "DESC"
	}

	var subs []models.Subscription
	err := query.
		Order(column + " " + direction).
		Offset(page * size).
		Limit(size).
		Find(&subs).Error
	return subs, total, err
}

func (r *subscriptionRepository) SearchPage(ctx context.Context, term string, page, size int) ([]models.Subscription, int64, error) {
	pattern := "%" + term + "%"
	query := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("name ILIKE ? OR description ILIKE ? OR category ILIKE ?", pattern, pattern, pattern)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.Subscription
	err := query.
		Order("id ASC").
		Offset(page * size).
		Limit(size).
		Find(&subs).Error
	return subs, total, err
}

func (r *subscriptionRepository) CountByStatus(ctx context.Context, status models.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) CountDistinctActiveCategories(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Distinct("category").
		Where("status = ?", models.StatusActive).
		Count(&count).Error
	return count, err
}

func (r *subscriptionRepository) CountActiveByCategory(ctx context.Context) (map[string]int64, error) {
	type categoryCount struct {
		Category string
		Total    int64
	}

	var rows []categoryCount
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("category, COUNT(*) AS total").
		Where("status = ?", models.StatusActive).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Total
	}
	return counts, nil
}
