package funds

import (
	"context"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type CreateFundInput struct {
	Name        string
	Code        string
	Restriction string
	ProgramID   *uuid.UUID
}

func (s *Service) CreateFund(ctx context.Context, orgID uuid.UUID, in CreateFundInput) (*domain.Fund, error) {
	if in.Name == "" || in.Code == "" {
		return nil, ledgererr.Validationf("name and code are required")
	}
	if !domain.ValidRestriction(in.Restriction) {
		return nil, ledgererr.Validationf("invalid restriction class %q", in.Restriction)
	}
	if in.ProgramID != nil {
		var program domain.Program
		if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.ProgramID, orgID).First(&program).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ledgererr.NotFoundf("program %s not found", in.ProgramID)
			}
			return nil, err
		}
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.Fund{}).
		Where("organization_id = ? AND code = ?", orgID, in.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ledgererr.Validationf("fund code %q already exists", in.Code)
	}

	fund := &domain.Fund{
		OrganizationID: orgID,
		Name:           in.Name,
		Code:           in.Code,
		Restriction:    in.Restriction,
		ProgramID:      in.ProgramID,
	}
	if err := s.DB.WithContext(ctx).Create(fund).Error; err != nil {
		return nil, err
	}
	return fund, nil
}

func (s *Service) ListFunds(ctx context.Context, orgID uuid.UUID) ([]domain.Fund, error) {
	var funds []domain.Fund
	if err := s.DB.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("code ASC").
		Find(&funds).Error; err != nil {
		return nil, err
	}
	return funds, nil
}

type UpdateFundInput struct {
	Name        *string
	Restriction *string
}

// UpdateFund renames a fund and, while no allocation references it, may still
// change its restriction class. Once referenced, the restriction is frozen:
// changing it would retroactively alter the compliance of past gifts.
func (s *Service) UpdateFund(ctx context.Context, orgID, fundID uuid.UUID, in UpdateFundInput) (*domain.Fund, error) {
	var fund domain.Fund

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND organization_id = ?", fundID, orgID).First(&fund).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgererr.NotFoundf("fund %s not found", fundID)
			}
			return err
		}

		if in.Restriction != nil && *in.Restriction != fund.Restriction {
			if !domain.ValidRestriction(*in.Restriction) {
				return ledgererr.Validationf("invalid restriction class %q", *in.Restriction)
			}
			var refs int64
			if err := tx.Model(&domain.Allocation{}).Where("fund_id = ?", fund.ID).Count(&refs).Error; err != nil {
				return err
			}
			if refs > 0 {
				return ledgererr.Transitionf(ledgererr.CodeRestrictionFrozen,
					"restriction class is immutable once allocations reference the fund")
			}
			fund.Restriction = *in.Restriction
		}
		if in.Name != nil && *in.Name != "" {
			fund.Name = *in.Name
		}
		return tx.Save(&fund).Error
	})
	if err != nil {
		return nil, err
	}
	return &fund, nil
}
