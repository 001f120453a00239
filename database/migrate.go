package database

import (
	"context"
	"fmt"

	"subcatalog/internal/config"
	"subcatalog/internal/logger"
	"subcatalog/internal/models"
	"subcatalog/internal/repositories"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var gormDB *gorm.DB

// ConnectGorm initializes GORM with the DSN from config. TranslateError is
// on so unique-index violations surface as gorm.ErrDuplicatedKey.
func ConnectGorm() (*gorm.DB, error) {
	if gormDB != nil {
		return gormDB, nil
	}

	cfg := config.GetConfig()
	dsn := cfg.Database.DSN

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	gormDB = db
	return db, nil
}

// AutoMigrate creates or updates the subscriptions table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Subscription{})
}

type seedEntry struct {
	name          string
	description   string
	price         string
	category      string
	billingPeriod string
	websiteURL    string
	logoURL       string
}

var seedData = []seedEntry{
	{"Netflix", "Video streaming service", "9.99", "Streaming", models.BillingMonthly, "https://netflix.com", "https://logo.clearbit.com/netflix.com"},
	{"Spotify", "Music streaming service", "9.99", "Music", models.BillingMonthly, "https://spotify.com", "https://logo.clearbit.com/spotify.com"},
	{"YouTube Premium", "Ad-free YouTube and music", "11.99", "Streaming", models.BillingMonthly, "https://youtube.com", "https://logo.clearbit.com/youtube.com"},
	{"Amazon Prime", "Shopping and streaming benefits", "8.99", "Shopping", models.BillingMonthly, "https://amazon.com", "https://logo.clearbit.com/amazon.com"},
	{"PlayStation Plus", "Gaming subscription", "9.99", "Gaming", models.BillingMonthly, "https://playstation.com", "https://logo.clearbit.com/playstation.com"},
	{"Xbox Game Pass", "Gaming subscription", "14.99", "Gaming", models.BillingMonthly, "https://xbox.com", "https://logo.clearbit.com/xbox.com"},
	{"Microsoft 365", "Office suite", "6.99", "Software", models.BillingMonthly, "https://microsoft.com", "https://logo.clearbit.com/microsoft.com"},
	{"Adobe Creative Cloud", "Design software suite", "20.99", "Software", models.BillingMonthly, "https://adobe.com", "https://logo.clearbit.com/adobe.com"},
	{"Dropbox", "Cloud storage service", "9.99", "Storage", models.BillingMonthly, "https://dropbox.com", "https://logo.clearbit.com/dropbox.com"},
	{"iCloud+", "Apple cloud storage", "0.99", "Storage", models.BillingMonthly, "https://apple.com", "https://logo.clearbit.com/apple.com"},
}

// Seed loads the initial catalog when the table is empty. Entries whose
// names already exist are skipped, so reruns are safe.
func Seed(ctx context.Context, db *gorm.DB, repo repositories.SubscriptionRepository) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Subscription{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count subscriptions: %w", err)
	}
	if count > 0 {
		return nil
	}

	logger.Info("Loading initial subscription data...")

	for _, entry := range seedData {
		exists, err := repo.ExistsByName(ctx, entry.name)
		if err != nil {
			return fmt.Errorf("failed to check subscription %q: %w", entry.name, err)
		}
		if exists {
			continue
		}

		price, err := decimal.NewFromString(entry.price)
		if err != nil {
			return fmt.Errorf("invalid seed price for %q: %w", entry.name, err)
		}

		sub := &models.Subscription{
			Name:          entry.name,
			Description:   entry.description,
			Price:         price,
			Currency:      models.DefaultCurrency,
			Category:      entry.category,
			BillingPeriod: entry.billingPeriod,
			WebsiteURL:    entry.websiteURL,
			LogoURL:       entry.logoURL,
			Status:        models.StatusActive,
		}
		if err := repo.Create(ctx, sub); err != nil {
			return fmt.Errorf("failed to seed subscription %q: %w", entry.name, err)
		}
		logger.Debug("Created subscription", "name", entry.name)
	}

	logger.Info("Initial subscription data loaded successfully")
	return nil
}
