package database

import (
	"beacon-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all ledger and reference models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Organization{},
		&domain.Program{},
		&domain.Party{},
		&domain.Appeal{},
		&domain.Package{},
		&domain.PaymentMethod{},
		&domain.Fund{},
		&domain.Donation{},
		&domain.Allocation{},
		&domain.Payment{},
		&domain.Pledge{},
		&domain.PledgeInstallment{},
		&domain.RecurringGift{},
		&domain.SoftCredit{},
		&domain.MatchingClaim{},
	)
}
