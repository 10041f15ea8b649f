package pledges

import (
	"context"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type CreatePledgeInput struct {
	PartyID     uuid.UUID
	PledgeDate  time.Time
	TotalAmount decimal.Decimal
	Currency    string
	Frequency   string
	StartDate   time.Time
	EndDate     time.Time
	// Periods is required for custom cadence and ignored otherwise.
	Periods int
}

// PledgeView is a pledge with its installment schedule.
type PledgeView struct {
	Pledge       domain.Pledge              `json:"pledge"`
	Installments []domain.PledgeInstallment `json:"installments"`
}

// CreatePledge decomposes the total into per-period installments: equal
// amounts truncated to the currency's two decimal places, with the final
// installment absorbing the rounding remainder so the sum is exact.
func (s *Service) CreatePledge(ctx context.Context, orgID uuid.UUID, in CreatePledgeInput) (*PledgeView, error) {
	if !validation.IsPositiveAmount(in.TotalAmount) {
		return nil, ledgererr.Validationf("total_amount must be positive with at most two decimal places")
	}
	if !validation.IsValidCurrency(in.Currency) {
		return nil, ledgererr.Validationf("invalid currency code %q", in.Currency)
	}
	if !domain.ValidFrequency(in.Frequency) {
		return nil, ledgererr.Validationf("invalid frequency %q", in.Frequency)
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, ledgererr.Validationf("end_date precedes start_date")
	}
	if in.Frequency == domain.FrequencyCustom && in.Periods < 1 {
		return nil, ledgererr.Validationf("custom cadence requires a positive period count")
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

	dueDates := scheduleDueDates(in.Frequency, in.StartDate.UTC(), in.EndDate.UTC(), in.Periods)
	amounts := splitAmount(in.TotalAmount, len(dueDates))

	view := &PledgeView{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pledge := domain.Pledge{
			OrganizationID: orgID,
			PartyID:        in.PartyID,
			PledgeDate:     in.PledgeDate.UTC(),
			TotalAmount:    in.TotalAmount,
			Currency:       in.Currency,
			Frequency:      in.Frequency,
			StartDate:      in.StartDate.UTC(),
			EndDate:        in.EndDate.UTC(),
			Status:         domain.PledgeActive,
		}
		if err := tx.Create(&pledge).Error; err != nil {
			return err
		}
		view.Pledge = pledge

		for i, due := range dueDates {
			inst := domain.PledgeInstallment{
				OrganizationID: orgID,
				PledgeID:       pledge.ID,
				DueDate:        due,
				DueAmount:      amounts[i],
				Status:         domain.InstallmentDue,
			}
			if err := tx.Create(&inst).Error; err != nil {
				return err
			}
			view.Installments = append(view.Installments, inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// scheduleDueDates returns the installment due dates for the cadence within
// [start, end]. A window shorter than one period still yields one date.
func scheduleDueDates(frequency string, start, end time.Time, periods int) []time.Time {
	if frequency == domain.FrequencyCustom {
		if periods < 1 {
			periods = 1
		}
		dates := make([]time.Time, 0, periods)
		if periods == 1 {
			return append(dates, start)
		}
		step := end.Sub(start) / time.Duration(periods)
		for i := 0; i < periods; i++ {
			dates = append(dates, start.Add(time.Duration(i)*step))
		}
		return dates
	}

	var step func(t time.Time) time.Time
	switch frequency {
	case domain.FrequencyQuarterly:
		step = func(t time.Time) time.Time { return t.AddDate(0, 3, 0) }
	case domain.FrequencyAnnual:
		step = func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	default:
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}

	dates := []time.Time{start}
	for next := step(start); !next.After(end); next = step(next) {
		dates = append(dates, next)
	}
	return dates
}

// splitAmount divides total into n parts: equal amounts truncated to two
// decimal places, final part absorbing the remainder. The parts always sum
// exactly to total.
func splitAmount(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 1 {
		return []decimal.Decimal{total}
	}
	per := total.Div(decimal.NewFromInt(int64(n))).RoundDown(2)
	amounts := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		amounts[i] = per
		running = running.Add(per)
	}
	amounts[n-1] = total.Sub(running)
	return amounts
}

func (s *Service) GetPledge(ctx context.Context, orgID, pledgeID uuid.UUID) (*PledgeView, error) {
	var pledge domain.Pledge
	if err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", pledgeID, orgID).First(&pledge).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledgererr.NotFoundf("pledge %s not found", pledgeID)
		}
		return nil, err
	}
	view := &PledgeView{Pledge: pledge}
	if err := s.DB.WithContext(ctx).
		Where("pledge_id = ?", pledgeID).
		Order("due_date ASC").
		Find(&view.Installments).Error; err != nil {
		return nil, err
	}
	return view, nil
}

// AdvanceSchedule transitions due installments whose due date has passed to
// late. It never generates payments, and re-running it for the same date is
// a no-op because paid and late rows no longer match the filter.
func (s *Service) AdvanceSchedule(ctx context.Context, orgID uuid.UUID, asOf time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.PledgeInstallment{}).
		Where("organization_id = ? AND status = ? AND due_date < ?", orgID, domain.InstallmentDue, asOf.UTC()).
		Update("status", domain.InstallmentLate)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
