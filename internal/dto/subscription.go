package dto

import (
	"subcatalog/internal/models"

	"github.com/shopspring/decimal"
)

// SubscriptionRequest is the create/update body. Validation runs against the
// validate tags before the service is invoked.
type SubscriptionRequest struct {
	Name          string          `json:"name" validate:"required"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" validate:"required,gt=0"`
	Currency      string          `json:"currency" validate:"required"`
	Category      string          `json:"category" validate:"required"`
	BillingPeriod string          `json:"billingPeriod" validate:"omitempty,oneof=MONTHLY YEARLY"`
	WebsiteURL    string          `json:"websiteUrl"`
	LogoURL       string          `json:"logoUrl"`
}

// ApplyDefaults fills the conventional defaults before validation so a body
// that omits currency or billing period still passes.
func (r *SubscriptionRequest) ApplyDefaults() {
	if r.Currency == "" {
		r.Currency = models.DefaultCurrency
	}
	if r.BillingPeriod == "" {
		r.BillingPeriod = models.BillingMonthly
	}
}

// SubscriptionResponse is the catalog entry shape returned to callers.
type SubscriptionResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Category      string          `json:"category"`
	BillingPeriod string          `json:"billingPeriod"`
	WebsiteURL    string          `json:"websiteUrl"`
	LogoURL       string          `json:"logoUrl"`
	IsActive      bool            `json:"isActive"`
}

// ToResponse maps a persisted record to the response shape.
func ToResponse(s *models.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		Price:         s.Price,
		Currency:      s.Currency,
		Category:      s.Category,
		BillingPeriod: s.BillingPeriod,
		WebsiteURL:    s.WebsiteURL,
		LogoURL:       s.LogoURL,
		IsActive:      s.IsActive(),
	}
}

// ToResponseList maps a slice of records, returning an empty (non-nil) slice
// for an empty input so JSON renders [] rather than null.
func ToResponseList(subs []models.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, ToResponse(&subs[i]))
	}
	return out
}

// PageQuery carries admin listing parameters.
type PageQuery struct {
	Page     int
	Size     int
	SortBy   string
	SortDir  string
	IsActive *bool
}

// PagedSubscriptions is one page of an admin listing or search.
type PagedSubscriptions struct {
	Content     []SubscriptionResponse `json:"subscriptions"`
	CurrentPage int                    `json:"currentPage"`
	TotalItems  int64                  `json:"totalItems"`
	TotalPages  int                    `json:"totalPages"`
}

// Statistics aggregates catalog counts, always computed fresh from the store.
type Statistics struct {
	ActiveSubscriptions     int64            `json:"activeSubscriptions"`
	InactiveSubscriptions   int64            `json:"inactiveSubscriptions"`
	TotalSubscriptions      int64            `json:"totalSubscriptions"`
	ActiveCategories        int64            `json:"activeCategories"`
	SubscriptionsByCategory map[string]int64 `json:"subscriptionsByCategory"`
}
