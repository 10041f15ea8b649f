package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receipt channels for a donation.
const (
	ChannelOnline = "online"
	ChannelCheck  = "check"
	ChannelCash   = "cash"
	ChannelInKind = "in_kind"
	ChannelWire   = "wire"
)

// Donation is the unit of donor intent: one donor, one date, one intended
// amount. Cash arrives through Payments; value is distributed through
// Allocations.
type Donation struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID       `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	PartyID         uuid.UUID       `gorm:"column:party_id;type:uuid;not null;index" json:"party_id"`
	TributePartyID  *uuid.UUID      `gorm:"column:tribute_party_id;type:uuid" json:"tribute_party_id"`
	AppealPackageID *uuid.UUID      `gorm:"column:appeal_package_id;type:uuid" json:"appeal_package_id"`
	ReceivedDate    time.Time       `gorm:"column:received_date;not null" json:"received_date"`
	IntentAmount    decimal.Decimal `gorm:"column:intent_amount;type:decimal(18,2);not null" json:"intent_amount"`
	Currency        string          `gorm:"column:currency;not null" json:"currency"`
	ReceivedVia     string          `gorm:"column:received_via;not null" json:"received_via"`
	MatchEligible   bool            `gorm:"column:match_eligible;default:false" json:"match_eligible"`
	AckStatus       string          `gorm:"column:ack_status" json:"ack_status"`
	Memo            string          `gorm:"column:memo;type:text" json:"memo"`
	CreatedAt       time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Donation) TableName() string {
	return "donations"
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Allocation assigns a portion of a donation's intent amount to a fund.
// For any donation the allocation amounts sum exactly to the intent amount.
type Allocation struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID       `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	DonationID     uuid.UUID       `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	FundID         uuid.UUID       `gorm:"column:fund_id;type:uuid;not null;index" json:"fund_id"`
	Amount         decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	ProgramID      *uuid.UUID      `gorm:"column:program_id;type:uuid" json:"program_id"`
	Notes          string          `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Allocation) TableName() string {
	return "donation_lines"
}

func (a *Allocation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func ValidChannel(c string) bool {
	switch c {
	case ChannelOnline, ChannelCheck, ChannelCash, ChannelInKind, ChannelWire:
		return true
	}
	return false
}
