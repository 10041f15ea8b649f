package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fund restriction classes (donor-imposed).
const (
	RestrictionUnrestricted = "unrestricted"
	RestrictionTemporary    = "temporarily_restricted"
	RestrictionPermanent    = "permanently_restricted"
)

// Fund is read-mostly reference data for allocations. Its restriction class
// is immutable once any allocation references the fund.
type Fund struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_fund_org_code" json:"organization_id"`
	Name           string     `gorm:"column:name;not null" json:"name"`
	Code           string     `gorm:"column:code;not null;uniqueIndex:idx_fund_org_code" json:"code"`
	Restriction    string     `gorm:"column:restriction;not null" json:"restriction"`
	ProgramID      *uuid.UUID `gorm:"column:program_id;type:uuid" json:"program_id"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Fund) TableName() string {
	return "funds"
}

func (f *Fund) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func ValidRestriction(r string) bool {
	switch r {
	case RestrictionUnrestricted, RestrictionTemporary, RestrictionPermanent:
		return true
	}
	return false
}
