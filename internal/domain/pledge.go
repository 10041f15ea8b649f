package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pledge cadences.
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyAnnual    = "annual"
	FrequencyCustom    = "custom"
)

// Pledge statuses.
const (
	PledgeActive    = "active"
	PledgeFulfilled = "fulfilled"
	PledgeCancelled = "cancelled"
)

// Pledge is a multi-period commitment decomposed into dated installments.
// The installment due amounts sum exactly to the pledge total.
type Pledge struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	PartyID        uuid.UUID       `gorm:"column:party_id;type:uuid;not null;index" json:"party_id"`
	PledgeDate     time.Time       `gorm:"column:pledge_date;not null" json:"pledge_date"`
	TotalAmount    decimal.Decimal `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	Currency       string          `gorm:"column:currency;not null" json:"currency"`
	Frequency      string          `gorm:"column:frequency;not null" json:"frequency"`
	StartDate      time.Time       `gorm:"column:start_date;not null" json:"start_date"`
	EndDate        time.Time       `gorm:"column:end_date;not null" json:"end_date"`
	Status         string          `gorm:"column:status;not null;default:active" json:"status"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Pledge) TableName() string {
	return "pledges"
}

func (p *Pledge) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Installment statuses.
const (
	InstallmentDue  = "due"
	InstallmentPaid = "paid"
	InstallmentLate = "late"
)

// PledgeInstallment is one scheduled partial payment within a pledge.
// due → paid on linked-payment settlement, due → late when the due date
// passes unsettled; late → paid remains possible.
type PledgeInstallment struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	PledgeID       uuid.UUID       `gorm:"column:pledge_id;type:uuid;not null;index" json:"pledge_id"`
	DueDate        time.Time       `gorm:"column:due_date;not null" json:"due_date"`
	DueAmount      decimal.Decimal `gorm:"column:due_amount;type:decimal(18,2);not null" json:"due_amount"`
	Status         string          `gorm:"column:status;not null;default:due" json:"status"`
	PaidPaymentID  *uuid.UUID      `gorm:"column:paid_payment_id;type:uuid" json:"paid_payment_id"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (PledgeInstallment) TableName() string {
	return "pledge_installments"
}

func (i *PledgeInstallment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func ValidFrequency(f string) bool {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual, FrequencyCustom:
		return true
	}
	return false
}
