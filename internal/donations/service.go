package donations

import (
	"context"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/locks"
	"beacon-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Locks *locks.Registry
}

type CreateDonationInput struct {
	PartyID         uuid.UUID
	TributePartyID  *uuid.UUID
	AppealPackageID *uuid.UUID
	ReceivedDate    time.Time
	IntentAmount    decimal.Decimal
	Currency        string
	ReceivedVia     string
	MatchEligible   bool
	AckStatus       string
	Memo            string
}

func (s *Service) CreateDonation(ctx context.Context, orgID uuid.UUID, in CreateDonationInput) (*domain.Donation, error) {
	if !validation.IsPositiveAmount(in.IntentAmount) {
		return nil, ledgererr.Validationf("intent_amount must be positive with at most two decimal places")
	}
	if !validation.IsValidCurrency(in.Currency) {
		return nil, ledgererr.Validationf("invalid currency code %q", in.Currency)
	}
	if !domain.ValidChannel(in.ReceivedVia) {
		return nil, ledgererr.Validationf("invalid receipt channel %q", in.ReceivedVia)
	}
	if in.ReceivedDate.IsZero() {
		return nil, ledgererr.Validationf("received_date is required")
	}

	var donor domain.Party
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.PartyID, orgID).First(&donor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("party %s not found", in.PartyID)
		}
		return nil, err
	}
	if donor.IsDeleted {
		return nil, ledgererr.Validationf("party %s is deleted", in.PartyID)
	}
	if in.TributePartyID != nil {
		var tribute domain.Party
		if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.TributePartyID, orgID).First(&tribute).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ledgererr.NotFoundf("tribute party %s not found", in.TributePartyID)
			}
			return nil, err
		}
	}
	if in.AppealPackageID != nil {
		var pkg domain.Package
		if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.AppealPackageID, orgID).First(&pkg).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ledgererr.NotFoundf("package %s not found", in.AppealPackageID)
			}
			return nil, err
		}
	}

	donation := &domain.Donation{
		OrganizationID:  orgID,
		PartyID:         in.PartyID,
		TributePartyID:  in.TributePartyID,
		AppealPackageID: in.AppealPackageID,
		ReceivedDate:    in.ReceivedDate.UTC(),
		IntentAmount:    in.IntentAmount,
		Currency:        in.Currency,
		ReceivedVia:     in.ReceivedVia,
		MatchEligible:   in.MatchEligible,
		AckStatus:       in.AckStatus,
		Memo:            in.Memo,
	}
	if err := s.DB.WithContext(ctx).Create(donation).Error; err != nil {
		return nil, err
	}
	return donation, nil
}

// DonationView is a donation with its full reconciliation context.
type DonationView struct {
	Donation       domain.Donation        `json:"donation"`
	Allocations    []domain.Allocation    `json:"allocations"`
	Payments       []domain.Payment       `json:"payments"`
	SoftCredits    []domain.SoftCredit    `json:"soft_credits"`
	MatchingClaims []domain.MatchingClaim `json:"matching_claims"`
	SettledTotal   decimal.Decimal        `json:"settled_total"`
}

func (s *Service) GetDonation(ctx context.Context, orgID, donationID uuid.UUID) (*DonationView, error) {
	var donation domain.Donation
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", donationID, orgID).First(&donation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("donation %s not found", donationID)
		}
		return nil, err
	}

	view := &DonationView{Donation: donation}
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).Find(&view.Allocations).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).Order("payment_date ASC").Find(&view.Payments).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).Find(&view.SoftCredits).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Where("donation_id = ?", donationID).Find(&view.MatchingClaims).Error; err != nil {
		return nil, err
	}
	view.SettledTotal = SettledNet(view.Payments)
	return view, nil
}

// SettledNet is the donation's net settled donor cash: settled amounts minus
// refunded amounts, match-kind payments excluded.
func SettledNet(payments []domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Kind != domain.PaymentKindDonor {
			continue
		}
		switch p.Status {
		case domain.PaymentSettled:
			total = total.Add(p.Amount)
		case domain.PaymentRefunded:
			total = total.Sub(p.Amount)
		}
	}
	return total
}

// AllocationLine is one requested fund allocation.
type AllocationLine struct {
	FundID    uuid.UUID
	Amount    decimal.Decimal
	ProgramID *uuid.UUID
	Notes     string
}

// Allocate replaces the donation's allocation set atomically. The line
// amounts must sum exactly to the intent amount and every fund must belong
// to the organization. Re-allocation is allowed only while no settled donor
// payment exists; after that, correction requires a reversing donation.
func (s *Service) Allocate(ctx context.Context, orgID, donationID uuid.UUID, lines []AllocationLine) ([]domain.Allocation, error) {
	if len(lines) == 0 {
		return nil, ledgererr.Validationf("at least one allocation line is required")
	}
	for _, line := range lines {
		if !validation.IsPositiveAmount(line.Amount) {
			return nil, ledgererr.Validationf("allocation amounts must be positive with at most two decimal places")
		}
	}

	unlock := s.Locks.Lock(donationID)
	defer unlock()

	var created []domain.Allocation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var donation domain.Donation
		if err := tx.Where("id = ? AND organization_id = ?", donationID, orgID).First(&donation).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ledgererr.NotFoundf("donation %s not found", donationID)
			}
			return err
		}

		var payments []domain.Payment
		if err := tx.Where("donation_id = ?", donationID).Find(&payments).Error; err != nil {
			return err
		}
		for _, p := range payments {
			if p.Kind == domain.PaymentKindDonor && p.Status == domain.PaymentSettled {
				return ledgererr.Transitionf(ledgererr.CodeAllocationFrozen,
					"allocation is immutable once a payment has settled; record a reversing donation instead")
			}
		}

		sum := decimal.Zero
		for _, line := range lines {
			sum = sum.Add(line.Amount)

			var fund domain.Fund
			if err := tx.Where("id = ? AND organization_id = ?", line.FundID, orgID).First(&fund).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ledgererr.Invariantf(ledgererr.CodeUnknownFund, "fund %s not found", line.FundID)
				}
				return err
			}
			if line.ProgramID != nil {
				var program domain.Program
				if err := tx.Where("id = ? AND organization_id = ?", line.ProgramID, orgID).First(&program).Error; err != nil {
					if err == gorm.ErrRecordNotFound {
						return ledgererr.NotFoundf("program %s not found", line.ProgramID)
					}
					return err
				}
			}
		}
		if !sum.Equal(donation.IntentAmount) {
			return ledgererr.Invariantf(ledgererr.CodeAllocationMismatch,
				"allocation sum %s does not equal intent amount %s", sum, donation.IntentAmount)
		}

		// All-or-nothing replace: the old set goes away only in the same
		// transaction that writes the new one.
		if err := tx.Where("donation_id = ?", donationID).Delete(&domain.Allocation{}).Error; err != nil {
			return err
		}
		for _, line := range lines {
			alloc := domain.Allocation{
				OrganizationID: orgID,
				DonationID:     donationID,
				FundID:         line.FundID,
				Amount:         line.Amount,
				ProgramID:      line.ProgramID,
				Notes:          line.Notes,
			}
			if err := tx.Create(&alloc).Error; err != nil {
				return err
			}
			created = append(created, alloc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
