package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recurring gift interval units.
const (
	IntervalDay   = "day"
	IntervalWeek  = "week"
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// RecurringGift is an indefinite repeating charge definition. Each successful
// cycle produces exactly one Donation and advances NextChargeOn by one
// interval; a failed charge leaves NextChargeOn unchanged.
type RecurringGift struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	PartyID         uuid.UUID       `gorm:"column:party_id;type:uuid;not null;index" json:"party_id"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Currency        string          `gorm:"column:currency;not null" json:"currency"`
	IntervalUnit    string          `gorm:"column:interval_unit;not null" json:"interval_unit"`
	IntervalCount   int             `gorm:"column:interval_count;not null;default:1" json:"interval_count"`
	NextChargeOn    time.Time       `gorm:"column:next_charge_on;not null" json:"next_charge_on"`
	PaymentMethodID uuid.UUID       `gorm:"column:payment_method_id;type:uuid;not null" json:"payment_method_id"`
	DefaultFundID   uuid.UUID       `gorm:"column:default_fund_id;type:uuid;not null" json:"default_fund_id"`
	Active          bool            `gorm:"column:active;not null;default:true" json:"active"`
	FailureCount    int             `gorm:"column:failure_count;not null;default:0" json:"failure_count"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (RecurringGift) TableName() string {
	return "recurring_gifts"
}

func (g *RecurringGift) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// AdvanceFrom returns the charge date one interval after from.
func (g *RecurringGift) AdvanceFrom(from time.Time) time.Time {
	n := g.IntervalCount
	if n < 1 {
		n = 1
	}
	switch g.IntervalUnit {
	case IntervalDay:
		return from.AddDate(0, 0, n)
	case IntervalWeek:
		return from.AddDate(0, 0, 7*n)
	case IntervalYear:
		return from.AddDate(n, 0, 0)
	default:
		return from.AddDate(0, n, 0)
	}
}

func ValidIntervalUnit(u string) bool {
	switch u {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}
