package recurring

import (
	"context"
	"errors"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/locks"
	"beacon-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Charger abstracts the payment gateway charge call for testability. The
// scheduling mechanism (cron, queue) lives outside this core; RunCycle is an
// idempotent function over a time parameter.
type Charger interface {
	Charge(ctx context.Context, tokenRef string, amount decimal.Decimal, currency string, metadata map[string]string) (gatewayRef string, err error)
}

type Service struct {
	DB      *gorm.DB
	Charger Charger
	// Locks serializes cycles per gift so overlapping invocations cannot
	// both charge the same period.
	Locks *locks.Registry
	// GatewayTimeout bounds each charge call; a timeout is a failure.
	GatewayTimeout time.Duration
	// MaxFailures deactivates a gift after that many consecutive failed cycles.
	MaxFailures int
}

type CreateRecurringGiftInput struct {
	PartyID         uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	IntervalUnit    string
	IntervalCount   int
	NextChargeOn    time.Time
	PaymentMethodID uuid.UUID
	DefaultFundID   uuid.UUID
}

func (s *Service) CreateRecurringGift(ctx context.Context, orgID uuid.UUID, in CreateRecurringGiftInput) (*domain.RecurringGift, error) {
	if !validation.IsPositiveAmount(in.Amount) {
		return nil, ledgererr.Validationf("amount must be positive with at most two decimal places")
	}
	if !validation.IsValidCurrency(in.Currency) {
		return nil, ledgererr.Validationf("invalid currency code %q", in.Currency)
	}
	if !domain.ValidIntervalUnit(in.IntervalUnit) {
		return nil, ledgererr.Validationf("invalid interval unit %q", in.IntervalUnit)
	}
	if in.IntervalCount < 1 {
		return nil, ledgererr.Validationf("interval_count must be at least 1")
	}
	if in.NextChargeOn.IsZero() {
		return nil, ledgererr.Validationf("next_charge_on is required")
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
	var method domain.PaymentMethod
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.PaymentMethodID, orgID).First(&method).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("payment method %s not found", in.PaymentMethodID)
		}
		return nil, err
	}
	var fund domain.Fund
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", in.DefaultFundID, orgID).First(&fund).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.Invariantf(ledgererr.CodeUnknownFund, "fund %s not found", in.DefaultFundID)
		}
		return nil, err
	}

	gift := &domain.RecurringGift{
		OrganizationID:  orgID,
		PartyID:         in.PartyID,
		Amount:          in.Amount,
		Currency:        in.Currency,
		IntervalUnit:    in.IntervalUnit,
		IntervalCount:   in.IntervalCount,
		NextChargeOn:    in.NextChargeOn.UTC(),
		PaymentMethodID: in.PaymentMethodID,
		DefaultFundID:   in.DefaultFundID,
		Active:          true,
	}
	if err := s.DB.WithContext(ctx).Create(gift).Error; err != nil {
		return nil, err
	}
	return gift, nil
}

// CycleResult reports what one RunCycle invocation did.
type CycleResult struct {
	GiftID       uuid.UUID  `json:"gift_id"`
	Outcome      string     `json:"outcome"` // charged, skipped, failed
	DonationID   *uuid.UUID `json:"donation_id,omitempty"`
	NextChargeOn time.Time  `json:"next_charge_on"`
	Deactivated  bool       `json:"deactivated"`
	FailureError string     `json:"failure_error,omitempty"`
}

// errCycleTaken signals another process advanced the gift past this period
// between our read and our write.
var errCycleTaken = errors.New("cycle already taken")

// RunCycle attempts one charge cycle for a gift. It is a no-op before the
// stored next-charge date or for an inactive gift, so re-running it for an
// already-processed period cannot double-charge. On success, exactly one
// donation is created (settled payment, default fund allocation) and the
// next-charge date advances one interval. On charge failure the date stays
// put for explicit retry, and the gift is deactivated after MaxFailures
// consecutive failures.
//
// The gift's lock is held for the whole cycle, so a concurrent invocation
// waits and then sees the advanced next-charge date instead of charging a
// second time.
func (s *Service) RunCycle(ctx context.Context, orgID, giftID uuid.UUID, asOf time.Time) (*CycleResult, error) {
	unlock := s.Locks.Lock(giftID)
	defer unlock()

	var gift domain.RecurringGift
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", giftID, orgID).First(&gift).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("recurring gift %s not found", giftID)
		}
		return nil, err
	}

	result := &CycleResult{GiftID: gift.ID, NextChargeOn: gift.NextChargeOn}
	if !gift.Active || asOf.Before(gift.NextChargeOn) {
		result.Outcome = "skipped"
		return result, nil
	}

	var method domain.PaymentMethod
	if err := s.DB.WithContext(ctx).Where("id = ?", gift.PaymentMethodID).First(&method).Error; err != nil {
		return nil, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()
	gatewayRef, chargeErr := s.Charger.Charge(chargeCtx, method.TokenRef, gift.Amount, gift.Currency, map[string]string{
		"recurring_gift_id": gift.ID.String(),
		"charge_on":         gift.NextChargeOn.Format("2006-01-02"),
	})

	if chargeErr != nil {
		gift.FailureCount++
		if gift.FailureCount >= s.MaxFailures {
			gift.Active = false
			result.Deactivated = true
		}
		if err := s.DB.WithContext(ctx).Save(&gift).Error; err != nil {
			return nil, err
		}
		log.Warn().Err(chargeErr).Str("gift_id", gift.ID.String()).Int("failure_count", gift.FailureCount).Msg("Recurring gift charge failed")
		result.Outcome = "failed"
		result.FailureError = ledgererr.Externalf("charge failed: %v", chargeErr).Error()
		return result, nil
	}

	chargedPeriod := gift.NextChargeOn
	advancedTo := gift.AdvanceFrom(chargedPeriod)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Advance the date only if nobody else already did; another process
		// (the lock covers only this one) may have taken the period.
		res := tx.Model(&domain.RecurringGift{}).
			Where("id = ? AND next_charge_on = ?", gift.ID, chargedPeriod).
			Updates(map[string]interface{}{"next_charge_on": advancedTo, "failure_count": 0})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errCycleTaken
		}

		donation := domain.Donation{
			OrganizationID: orgID,
			PartyID:        gift.PartyID,
			ReceivedDate:   gift.NextChargeOn,
			IntentAmount:   gift.Amount,
			Currency:       gift.Currency,
			ReceivedVia:    domain.ChannelOnline,
		}
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}
		alloc := domain.Allocation{
			OrganizationID: orgID,
			DonationID:     donation.ID,
			FundID:         gift.DefaultFundID,
			Amount:         gift.Amount,
		}
		if err := tx.Create(&alloc).Error; err != nil {
			return err
		}
		payment := domain.Payment{
			OrganizationID: orgID,
			DonationID:     donation.ID,
			PaymentDate:    time.Now().UTC(),
			Amount:         gift.Amount,
			Currency:       gift.Currency,
			Method:         method.Method,
			GatewayRef:     &gatewayRef,
			Status:         domain.PaymentSettled,
			Kind:           domain.PaymentKindDonor,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		result.Outcome = "charged"
		result.DonationID = &donation.ID
		result.NextChargeOn = advancedTo
		return nil
	})
	if err == errCycleTaken {
		log.Warn().Str("gift_id", gift.ID.String()).Msg("Recurring gift cycle already taken elsewhere")
		result.Outcome = "skipped"
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunDue runs one cycle for every active gift due as of the given date.
func (s *Service) RunDue(ctx context.Context, orgID uuid.UUID, asOf time.Time) ([]CycleResult, error) {
	var gifts []domain.RecurringGift
	if err := s.DB.WithContext(ctx).
		Where("organization_id = ? AND active = ? AND next_charge_on <= ?", orgID, true, asOf.UTC()).
		Find(&gifts).Error; err != nil {
		return nil, err
	}

	results := make([]CycleResult, 0, len(gifts))
	for _, gift := range gifts {
		res, err := s.RunCycle(ctx, orgID, gift.ID, asOf)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}
