package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reference/master data. The ledger validates these rows exist but does not
// own their lifecycle; only minimal fields needed for validation are modeled.

type Organization struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LegalName string    `gorm:"column:legal_name;not null" json:"legal_name"`
	EIN       string    `gorm:"column:ein;uniqueIndex;not null" json:"ein"`
	Timezone  string    `gorm:"column:timezone" json:"timezone"`
	Status    string    `gorm:"column:status" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type Program struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	Code           string    `gorm:"column:code;not null" json:"code"`
	Description    string    `gorm:"column:description;type:text" json:"description"`
}

func (Program) TableName() string {
	return "programs"
}

func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Party is a donor, influencer, employer, or honoree. Donations outlive a
// party's soft-deletion, so the flag only gates new activity.
type Party struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	Type           string    `gorm:"column:type;not null" json:"type"` // individual or organization
	DisplayName    string    `gorm:"column:display_name;not null" json:"display_name"`
	GivenName      *string   `gorm:"column:given_name" json:"given_name"`
	FamilyName     *string   `gorm:"column:family_name" json:"family_name"`
	IsDeleted      bool      `gorm:"column:is_deleted;default:false" json:"is_deleted"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Party) TableName() string {
	return "parties"
}

func (p *Party) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Appeal struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	CampaignID     uuid.UUID `gorm:"column:campaign_id;type:uuid;not null" json:"campaign_id"`
	Code           string    `gorm:"column:code;not null" json:"code"`
	Channel        string    `gorm:"column:channel" json:"channel"`
}

func (Appeal) TableName() string {
	return "appeals"
}

func (a *Appeal) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Package is the mailable unit under an appeal; donations attribute to a package.
type Package struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	AppealID       uuid.UUID `gorm:"column:appeal_id;type:uuid;not null" json:"appeal_id"`
	Code           string    `gorm:"column:code;not null" json:"code"`
}

func (Package) TableName() string {
	return "packages"
}

func (p *Package) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaymentMethod is a stored payment instrument (tokenized by the gateway).
type PaymentMethod struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	PartyID        uuid.UUID `gorm:"column:party_id;type:uuid;not null" json:"party_id"`
	Method         string    `gorm:"column:method;not null" json:"method"`
	TokenRef       string    `gorm:"column:token_ref" json:"token_ref"`
	IsDefault      bool      `gorm:"column:is_default;default:false" json:"is_default"`
}

func (PaymentMethod) TableName() string {
	return "payment_methods"
}

func (m *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
