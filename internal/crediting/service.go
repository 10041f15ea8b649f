package crediting

import (
	"context"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/payments"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB       *gorm.DB
	Payments *payments.Service
}

type AddSoftCreditInput struct {
	InfluencerPartyID uuid.UUID
	Amount            decimal.Decimal
	Reason            string
	Notes             string
}

// AddSoftCredit attaches a non-cash attribution to a donation. No sum
// invariant applies: an influencer may be credited for part of the gift or
// for all of it independent of cash ownership.
func (s *Service) AddSoftCredit(ctx context.Context, orgID, donationID uuid.UUID, in AddSoftCreditInput) (*domain.SoftCredit, error) {
	if !validation.IsPositiveAmount(in.Amount) {
		return nil, ledgererr.Validationf("amount must be positive with at most two decimal places")
	}
	if !domain.ValidSoftCreditReason(in.Reason) {
		return nil, ledgererr.Validationf("invalid soft credit reason %q", in.Reason)
	}

	var donation domain.Donation
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", donationID, orgID).First(&donation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("donation %s not found", donationID)
		}
		return nil, err
	}
	var influencer domain.Party
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.InfluencerPartyID, orgID).First(&influencer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("influencer party %s not found", in.InfluencerPartyID)
		}
		return nil, err
	}

	credit := &domain.SoftCredit{
		OrganizationID:    orgID,
		DonationID:        donationID,
		InfluencerPartyID: in.InfluencerPartyID,
		Amount:            in.Amount,
		Reason:            in.Reason,
		Notes:             in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(credit).Error; err != nil {
		return nil, err
	}
	return credit, nil
}

func (s *Service) ListSoftCredits(ctx context.Context, orgID, donationID uuid.UUID) ([]domain.SoftCredit, error) {
	var credits []domain.SoftCredit
	if err := s.DB.WithContext(ctx).
		Where("donation_id = ? AND organization_id = ?", donationID, orgID).
		Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

// SubmitClaim opens a matching claim in status submitted.
func (s *Service) SubmitClaim(ctx context.Context, orgID, donationID, matcherPartyID uuid.UUID) (*domain.MatchingClaim, error) {
	var donation domain.Donation
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", donationID, orgID).First(&donation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("donation %s not found", donationID)
		}
		return nil, err
	}
	var matcher domain.Party
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", matcherPartyID, orgID).First(&matcher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("matcher party %s not found", matcherPartyID)
		}
		return nil, err
	}

	claim := &domain.MatchingClaim{
		OrganizationID: orgID,
		DonationID:     donationID,
		MatcherPartyID: matcherPartyID,
		SubmittedAt:    time.Now().UTC(),
		Status:         domain.ClaimSubmitted,
	}
	if err := s.DB.WithContext(ctx).Create(claim).Error; err != nil {
		return nil, err
	}
	return claim, nil
}

// MatchPaymentInput describes the employer cash behind a paid claim.
type MatchPaymentInput struct {
	Amount     decimal.Decimal
	Method     string
	GatewayRef *string
}

// TransitionClaim moves a claim along submitted→{approved,denied},
// approved→paid. Marking paid records the employer's settled payment against
// the donation as match-kind cash, which never counts toward the donation's
// own settled total. The payment and the claim commit in one transaction so
// the ledger never holds employer cash against an unpaid claim.
func (s *Service) TransitionClaim(ctx context.Context, orgID, claimID uuid.UUID, newStatus string, pay *MatchPaymentInput) (*domain.MatchingClaim, error) {
	var claim domain.MatchingClaim
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", claimID, orgID).First(&claim).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("matching claim %s not found", claimID)
		}
		return nil, err
	}

	// The donation lock serializes transitions for this claim against each
	// other and against other payment postings on the same donation.
	unlock := s.Payments.Locks.Lock(claim.DonationID)
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND organization_id = ?", claimID, orgID).First(&claim).Error; err != nil {
			return err
		}
		if !domain.CanTransition(claim.Status, newStatus) {
			return ledgererr.Transitionf(ledgererr.CodeInvalidTransition,
				"cannot transition matching claim from %s to %s", claim.Status, newStatus)
		}

		if newStatus == domain.ClaimPaid {
			if pay == nil {
				return ledgererr.Validationf("marking a claim paid requires the employer payment")
			}
			var donation domain.Donation
			if err := tx.Where("id = ?", claim.DonationID).First(&donation).Error; err != nil {
				return err
			}
			payment, err := s.Payments.RecordPaymentTx(tx, orgID, claim.DonationID, payments.RecordPaymentInput{
				PaymentDate: time.Now().UTC(),
				Amount:      pay.Amount,
				Currency:    donation.Currency,
				Method:      pay.Method,
				GatewayRef:  pay.GatewayRef,
				Status:      domain.PaymentSettled,
				Kind:        domain.PaymentKindMatch,
			})
			if err != nil {
				return err
			}
			claim.PaidPaymentID = &payment.ID
		}

		claim.Status = newStatus
		return tx.Save(&claim).Error
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}
