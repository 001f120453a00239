package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the two-state subscription lifecycle. Deactivation is a soft
// delete: inactive records stay in the table and remain visible to admins.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Billing periods, stored as plain text by convention.
const (
	BillingMonthly = "MONTHLY"
	BillingYearly  = "YEARLY"
)

const DefaultCurrency = "AZN"

// Subscription is a catalog entry for a subscription offering.
type Subscription struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;uniqueIndex" json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Currency      string          `gorm:"not null;default:'AZN'" json:"currency"`
	Category      string          `gorm:"not null;index" json:"category"`
	BillingPeriod string          `gorm:"default:'MONTHLY'" json:"billingPeriod"`
	WebsiteURL    string          `json:"websiteUrl"`
	LogoURL       string          `json:"logoUrl"`
	Status        Status          `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}
