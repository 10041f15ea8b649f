package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses.
const (
	PaymentPending  = "pending"
	PaymentSettled  = "settled"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Payment kinds. Donor cash counts toward the donation's settled total;
// match cash is the employer's money behind a paid matching claim and is
// tracked against the same donation without inflating its settled total.
const (
	PaymentKindDonor = "donor"
	PaymentKindMatch = "match"
)

// Payment is one settlement event against a donation. A donation may settle
// across several payments; a refunded payment reverses a prior settled one.
type Payment struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	DonationID      uuid.UUID       `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	PaymentDate     time.Time       `gorm:"column:payment_date;not null" json:"payment_date"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Currency        string          `gorm:"column:currency;not null" json:"currency"`
	Method          string          `gorm:"column:method;not null" json:"method"`
	GatewayRef      *string         `gorm:"column:gateway_ref;uniqueIndex" json:"gateway_ref"`
	Status          string          `gorm:"column:status;not null" json:"status"`
	Kind            string          `gorm:"column:kind;not null;default:donor" json:"kind"`
	RawGatewayEvent datatypes.JSON  `gorm:"column:raw_gateway_event;type:jsonb" json:"raw_gateway_event"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentSettled, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}
