package recurring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"beacon-backend/internal/domain"
	"beacon-backend/internal/pkg/ledgererr"
	"beacon-backend/internal/pkg/locks"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCharger struct {
	mu    sync.Mutex
	calls int
	fail  bool
	delay time.Duration
}

func (f *fakeCharger) Charge(ctx context.Context, tokenRef string, amount decimal.Decimal, currency string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail {
		return "", errors.New("card declined")
	}
	return fmt.Sprintf("ch_fake_%d", n), nil
}

func setupRecurringTest(t *testing.T) (*Service, *fakeCharger, *gorm.DB, uuid.UUID, CreateRecurringGiftInput) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Organization{}, &domain.Party{}, &domain.PaymentMethod{},
		&domain.Fund{}, &domain.Donation{}, &domain.Allocation{}, &domain.Payment{},
		&domain.RecurringGift{},
	))
	org := domain.Organization{LegalName: "Beacon Relief", EIN: "12-3456789"}
	require.NoError(t, db.Create(&org).Error)
	donor := domain.Party{OrganizationID: org.ID, Type: "individual", DisplayName: "Ada Donor"}
	require.NoError(t, db.Create(&donor).Error)
	method := domain.PaymentMethod{
		OrganizationID: org.ID, PartyID: donor.ID, Method: "card", TokenRef: "tok_visa",
	}
	require.NoError(t, db.Create(&method).Error)
	fund := domain.Fund{
		OrganizationID: org.ID, Name: "General", Code: "GEN",
		Restriction: domain.RestrictionUnrestricted,
	}
	require.NoError(t, db.Create(&fund).Error)

	charger := &fakeCharger{}
	svc := &Service{DB: db, Charger: charger, GatewayTimeout: 5 * time.Second, MaxFailures: 3, Locks: locks.NewRegistry()}
	in := CreateRecurringGiftInput{
		PartyID:         donor.ID,
		Amount:          decimal.NewFromInt(25),
		Currency:        "USD",
		IntervalUnit:    domain.IntervalMonth,
		IntervalCount:   1,
		NextChargeOn:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PaymentMethodID: method.ID,
		DefaultFundID:   fund.ID,
	}
	return svc, charger, db, org.ID, in
}

func TestCreateRecurringGift(t *testing.T) {
	svc, _, _, orgID, in := setupRecurringTest(t)

	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)
	assert.True(t, gift.Active)
	assert.Zero(t, gift.FailureCount)

	bad := in
	bad.DefaultFundID = uuid.New()
	_, err = svc.CreateRecurringGift(context.Background(), orgID, bad)
	require.Error(t, err)
	assert.True(t, ledgererr.IsCode(err, ledgererr.CodeUnknownFund))

	bad = in
	bad.IntervalCount = 0
	_, err = svc.CreateRecurringGift(context.Background(), orgID, bad)
	assert.True(t, ledgererr.IsKind(err, ledgererr.Validation))
}

func TestRunCycle_ChargesAndAdvances(t *testing.T) {
	svc, charger, db, orgID, in := setupRecurringTest(t)
	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	res, err := svc.RunCycle(context.Background(), orgID, gift.ID, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "charged", res.Outcome)
	require.NotNil(t, res.DonationID)
	assert.True(t, res.NextChargeOn.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, charger.calls)

	// One donation, one allocation to the default fund, one settled payment.
	var donation domain.Donation
	require.NoError(t, db.First(&donation, "id = ?", res.DonationID).Error)
	assert.Equal(t, domain.ChannelOnline, donation.ReceivedVia)
	assert.True(t, donation.IntentAmount.Equal(gift.Amount))

	var alloc domain.Allocation
	require.NoError(t, db.First(&alloc, "donation_id = ?", donation.ID).Error)
	assert.Equal(t, gift.DefaultFundID, alloc.FundID)
	assert.True(t, alloc.Amount.Equal(gift.Amount))

	var payment domain.Payment
	require.NoError(t, db.First(&payment, "donation_id = ?", donation.ID).Error)
	assert.Equal(t, domain.PaymentSettled, payment.Status)
	require.NotNil(t, payment.GatewayRef)
}

func TestRunCycle_NoDoubleChargeForSamePeriod(t *testing.T) {
	svc, charger, db, orgID, in := setupRecurringTest(t)
	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	asOf := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res, err := svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, "charged", res.Outcome)

	// Same asOf again: the stored next-charge date has moved past it.
	res, err = svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Outcome)
	assert.Equal(t, 1, charger.calls)

	var count int64
	require.NoError(t, db.Model(&domain.Donation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRunCycle_SkipsBeforeDueDate(t *testing.T) {
	svc, charger, _, orgID, in := setupRecurringTest(t)
	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	res, err := svc.RunCycle(context.Background(), orgID, gift.ID, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Outcome)
	assert.Zero(t, charger.calls)
}

func TestRunCycle_FailureLeavesScheduleAndDeactivates(t *testing.T) {
	svc, charger, db, orgID, in := setupRecurringTest(t)
	charger.fail = true
	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		res, err := svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
		require.NoError(t, err)
		assert.Equal(t, "failed", res.Outcome)
		assert.NotEmpty(t, res.FailureError)
		// The charge date never advances on failure.
		assert.True(t, res.NextChargeOn.Equal(gift.NextChargeOn))
		assert.Equal(t, i == 3, res.Deactivated)
	}

	var got domain.RecurringGift
	require.NoError(t, db.First(&got, "id = ?", gift.ID).Error)
	assert.False(t, got.Active)
	assert.Equal(t, 3, got.FailureCount)

	// No ledger rows were committed for failed cycles.
	var count int64
	require.NoError(t, db.Model(&domain.Donation{}).Count(&count).Error)
	assert.Zero(t, count)

	// Deactivated gifts are skipped outright.
	res, err := svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Outcome)
	assert.Equal(t, 3, charger.calls)
}

func TestRunCycle_SuccessResetsFailureCount(t *testing.T) {
	svc, charger, db, orgID, in := setupRecurringTest(t)
	charger.fail = true
	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	asOf := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err = svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
	require.NoError(t, err)

	charger.fail = false
	res, err := svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, "charged", res.Outcome)

	var got domain.RecurringGift
	require.NoError(t, db.First(&got, "id = ?", gift.ID).Error)
	assert.Zero(t, got.FailureCount)
	assert.True(t, got.Active)
}

func TestRunDue_SweepsDueGifts(t *testing.T) {
	svc, charger, _, orgID, in := setupRecurringTest(t)

	_, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	later := in
	later.NextChargeOn = time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateRecurringGift(context.Background(), orgID, later)
	require.NoError(t, err)

	results, err := svc.RunDue(context.Background(), orgID, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "charged", results[0].Outcome)
	assert.Equal(t, 1, charger.calls)
}

func TestRunCycle_ConcurrentInvocationsChargeOnce(t *testing.T) {
	svc, charger, db, orgID, in := setupRecurringTest(t)
	charger.delay = 50 * time.Millisecond

	gift, err := svc.CreateRecurringGift(context.Background(), orgID, in)
	require.NoError(t, err)

	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	outcomes := make(chan string, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.RunCycle(context.Background(), orgID, gift.ID, asOf)
			if !assert.NoError(t, err) {
				outcomes <- "error"
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[string]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts["charged"])
	assert.Equal(t, 1, counts["skipped"])
	assert.Equal(t, 1, charger.calls)

	var donationCount, paymentCount int64
	require.NoError(t, db.Model(&domain.Donation{}).Count(&donationCount).Error)
	require.NoError(t, db.Model(&domain.Payment{}).Count(&paymentCount).Error)
	assert.EqualValues(t, 1, donationCount)
	assert.EqualValues(t, 1, paymentCount)

	var got domain.RecurringGift
	require.NoError(t, db.First(&got, "id = ?", gift.ID).Error)
	assert.True(t, got.NextChargeOn.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
}
