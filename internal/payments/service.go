package payments

import (
	"context"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/donations"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/locks"
	"beacon-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB    *gorm.DB
	Locks *locks.Registry
}

type RecordPaymentInput struct {
	PaymentDate     time.Time
	Amount          decimal.Decimal
	Currency        string
	Method          string
	GatewayRef      *string
	Status          string
	Kind            string
	InstallmentID   *uuid.UUID
	RawGatewayEvent datatypes.JSON
}

// RecordPayment posts one payment against a donation. Settled donor payments
// may never push the donation's net settled total above its intent amount;
// refunds require a prior settled payment of at least the refunded amount.
// Settling a payment linked to an installment marks the installment paid;
// refunding that payment reverts it.
func (s *Service) RecordPayment(ctx context.Context, orgID, donationID uuid.UUID, in RecordPaymentInput) (*domain.Payment, error) {
	unlock := s.Locks.Lock(donationID)
	defer unlock()

	var payment *domain.Payment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.RecordPaymentTx(tx, orgID, donationID, in)
		if err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RecordPaymentTx posts the payment inside the caller's open transaction, so
// a caller can commit the payment together with its own rows. The caller must
// hold the donation's lock.
func (s *Service) RecordPaymentTx(tx *gorm.DB, orgID, donationID uuid.UUID, in RecordPaymentInput) (*domain.Payment, error) {
	if !validation.IsPositiveAmount(in.Amount) {
		return nil, ledgererr.Validationf("amount must be positive with at most two decimal places")
	}
	if !domain.ValidPaymentStatus(in.Status) {
		return nil, ledgererr.Validationf("invalid payment status %q", in.Status)
	}
	if in.Method == "" {
		return nil, ledgererr.Validationf("method is required")
	}
	if in.Kind == "" {
		in.Kind = domain.PaymentKindDonor
	}
	if in.Kind != domain.PaymentKindDonor && in.Kind != domain.PaymentKindMatch {
		return nil, ledgererr.Validationf("invalid payment kind %q", in.Kind)
	}
	if in.InstallmentID != nil && in.Status != domain.PaymentSettled {
		return nil, ledgererr.Validationf("installment link requires a settled payment")
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = time.Now().UTC()
	}

	var donation domain.Donation
	if err := tx.Where("id = ? AND organization_id = ?", donationID, orgID).First(&donation).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("donation %s not found", donationID)
		}
		return nil, err
	}
	if in.Currency != donation.Currency {
		return nil, ledgererr.Validationf("payment currency %s does not match donation currency %s", in.Currency, donation.Currency)
	}

	var existing []domain.Payment
	if err := tx.Where("donation_id = ?", donationID).Order("payment_date ASC").Find(&existing).Error; err != nil {
		return nil, err
	}
	settledNet := donations.SettledNet(existing)

	var reversed *domain.Payment
	switch {
	case in.Status == domain.PaymentSettled && in.Kind == domain.PaymentKindDonor:
		if settledNet.Add(in.Amount).GreaterThan(donation.IntentAmount) {
			return nil, ledgererr.Invariantf(ledgererr.CodeOverSettlement,
				"settled total %s would exceed intent amount %s", settledNet.Add(in.Amount), donation.IntentAmount)
		}
	case in.Status == domain.PaymentRefunded:
		if in.Kind != domain.PaymentKindDonor {
			return nil, ledgererr.Validationf("only donor payments may be refunded")
		}
		if settledNet.LessThan(in.Amount) {
			return nil, ledgererr.Invariantf(ledgererr.CodeInvalidRefund,
				"refund %s exceeds net settled total %s", in.Amount, settledNet)
		}
		// Most recent settled payment large enough to be the one reversed.
		for i := len(existing) - 1; i >= 0; i-- {
			p := existing[i]
			if p.Kind == domain.PaymentKindDonor && p.Status == domain.PaymentSettled && p.Amount.GreaterThanOrEqual(in.Amount) {
				reversed = &existing[i]
				break
			}
		}
		if reversed == nil {
			return nil, ledgererr.Invariantf(ledgererr.CodeInvalidRefund,
				"no prior settled payment of at least %s to refund", in.Amount)
		}
	}

	payment := &domain.Payment{
		OrganizationID:  orgID,
		DonationID:      donationID,
		PaymentDate:     in.PaymentDate.UTC(),
		Amount:          in.Amount,
		Currency:        in.Currency,
		Method:          in.Method,
		GatewayRef:      in.GatewayRef,
		Status:          in.Status,
		Kind:            in.Kind,
		RawGatewayEvent: in.RawGatewayEvent,
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, err
	}

	if in.InstallmentID != nil {
		if err := s.settleInstallment(tx, orgID, *in.InstallmentID, payment); err != nil {
			return nil, err
		}
	}
	if reversed != nil {
		if err := s.revertInstallmentFor(tx, reversed.ID); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

// settleInstallment flips due/late → paid when the settling payment covers
// the due amount, then marks the pledge fulfilled if nothing is left owing.
func (s *Service) settleInstallment(tx *gorm.DB, orgID, installmentID uuid.UUID, payment *domain.Payment) error {
	var inst domain.PledgeInstallment
	if err := tx.Where("id = ? AND organization_id = ?", installmentID, orgID).First(&inst).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ledgererr.NotFoundf("installment %s not found", installmentID)
		}
		return err
	}
	if inst.Status == domain.InstallmentPaid {
		return ledgererr.Transitionf(ledgererr.CodeInvalidTransition, "installment %s is already paid", installmentID)
	}
	if payment.Amount.LessThan(inst.DueAmount) {
		return ledgererr.Validationf("payment amount %s is less than installment due amount %s", payment.Amount, inst.DueAmount)
	}

	inst.Status = domain.InstallmentPaid
	inst.PaidPaymentID = &payment.ID
	if err := tx.Save(&inst).Error; err != nil {
		return err
	}

	var open int64
	if err := tx.Model(&domain.PledgeInstallment{}).
		Where("pledge_id = ? AND status <> ?", inst.PledgeID, domain.InstallmentPaid).
		Count(&open).Error; err != nil {
		return err
	}
	if open == 0 {
		return tx.Model(&domain.Pledge{}).Where("id = ?", inst.PledgeID).
			Update("status", domain.PledgeFulfilled).Error
	}
	return nil
}

// revertInstallmentFor undoes the satisfaction of any installment linked to
// the reversed payment: back to due, or late when the due date has passed.
func (s *Service) revertInstallmentFor(tx *gorm.DB, reversedPaymentID uuid.UUID) error {
	var inst domain.PledgeInstallment
	err := tx.Where("paid_payment_id = ?", reversedPaymentID).First(&inst).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	inst.Status = domain.InstallmentDue
	if inst.DueDate.Before(time.Now().UTC()) {
		inst.Status = domain.InstallmentLate
	}
	inst.PaidPaymentID = nil
	if err := tx.Save(&inst).Error; err != nil {
		return err
	}
	return tx.Model(&domain.Pledge{}).
		Where("id = ? AND status = ?", inst.PledgeID, domain.PledgeFulfilled).
		Update("status", domain.PledgeActive).Error
}

// ListPayments returns a donation's payments, oldest first.
func (s *Service) ListPayments(ctx context.Context, orgID, donationID uuid.UUID) ([]domain.Payment, error) {
	var payments []domain.Payment
	if err := s.DB.WithContext(ctx).
		Where("donation_id = ? AND organization_id = ?", donationID, orgID).
		Order("payment_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
