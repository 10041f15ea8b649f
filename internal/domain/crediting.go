package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Soft credit reasons.
const (
	SoftCreditPeerToPeer = "peer_to_peer"
	SoftCreditInHonor    = "in_honor"
	SoftCreditSolicitor  = "solicitor"
)

// SoftCredit attributes fundraising credit to a party other than the paying
// donor. Purely attributional: it never changes payment or allocation totals
// and need not sum to the donation's intent amount.
type SoftCredit struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID    uuid.UUID       `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	DonationID        uuid.UUID       `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	InfluencerPartyID uuid.UUID       `gorm:"column:influencer_party_id;type:uuid;not null;index" json:"influencer_party_id"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Reason            string          `gorm:"column:reason;not null" json:"reason"`
	Notes             string          `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (SoftCredit) TableName() string {
	return "soft_credits"
}

func (s *SoftCredit) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Matching claim statuses.
const (
	ClaimSubmitted = "submitted"
	ClaimApproved  = "approved"
	ClaimDenied    = "denied"
	ClaimPaid      = "paid"
)

// ClaimTransitions is the allow-list of valid matching claim status edges.
// denied and paid are terminal.
var ClaimTransitions = map[string][]string{
	ClaimSubmitted: {ClaimApproved, ClaimDenied},
	ClaimApproved:  {ClaimPaid},
}

// MatchingClaim tracks an employer's match of a donation through its own
// approval/payment lifecycle, independent of the original gift's settlement.
type MatchingClaim struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	DonationID     uuid.UUID  `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	MatcherPartyID uuid.UUID  `gorm:"column:matcher_party_id;type:uuid;not null;index" json:"matcher_party_id"`
	SubmittedAt    time.Time  `gorm:"column:submitted_at;not null" json:"submitted_at"`
	Status         string     `gorm:"column:status;not null;default:submitted" json:"status"`
	PaidPaymentID  *uuid.UUID `gorm:"column:paid_payment_id;type:uuid" json:"paid_payment_id"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (MatchingClaim) TableName() string {
	return "matching_claims"
}

func (m *MatchingClaim) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// CanTransition reports whether a claim may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range ClaimTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func ValidSoftCreditReason(r string) bool {
	switch r {
	case SoftCreditPeerToPeer, SoftCreditInHonor, SoftCreditSolicitor:
		return true
	}
	return false
}
