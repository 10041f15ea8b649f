package reporting

import (
	"context"
	"testing"
	"time"

	"beacon-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReportingTest(t *testing.T) (*Service, *miniredis.Miniredis, *gorm.DB, uuid.UUID) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Organization{}, &domain.Party{}, &domain.Donation{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	org := domain.Organization{LegalName: "Beacon Relief", EIN: "12-3456789"}
	require.NoError(t, db.Create(&org).Error)

	svc := &Service{DB: db, Rdb: rdb, CacheTTL: 5 * time.Minute}
	return svc, mr, db, org.ID
}

func seedDonation(t *testing.T, db *gorm.DB, orgID, partyID uuid.UUID, amount int64, via string, received time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.Donation{
		OrganizationID: orgID, PartyID: partyID,
		ReceivedDate: received, IntentAmount: decimal.NewFromInt(amount),
		Currency: "USD", ReceivedVia: via,
	}).Error)
}

func TestGetRevenueRollup(t *testing.T) {
	svc, _, db, orgID := setupReportingTest(t)
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	donorA, donorB := uuid.New(), uuid.New()

	seedDonation(t, db, orgID, donorA, 500, domain.ChannelOnline, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	seedDonation(t, db, orgID, donorA, 2000, domain.ChannelCheck, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	seedDonation(t, db, orgID, donorB, 300, domain.ChannelInKind, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))

	rollups, err := svc.GetRevenueRollup(context.Background(), orgID, asOf)
	require.NoError(t, err)
	require.Len(t, rollups, 3)

	y2024, y2025 := rollups[1], rollups[2]
	assert.Equal(t, 2024, y2024.Year)
	assert.True(t, y2024.TotalRevenue.Equal(decimal.NewFromInt(500)))
	assert.True(t, y2024.OnlineRevenue.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 1, y2024.FirstGiftCount)

	assert.Equal(t, 2025, y2025.Year)
	assert.True(t, y2025.TotalRevenue.Equal(decimal.NewFromInt(2300)))
	assert.True(t, y2025.OfflineRevenue.Equal(decimal.NewFromInt(2000)))
	assert.True(t, y2025.InKindRevenue.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 1, y2025.FirstGiftCount) // donorB's first gift
	assert.Equal(t, 1, y2025.MajorGiftCount) // the 2000 check
}

func TestGetRevenueRollup_ServesFromCache(t *testing.T) {
	svc, mr, db, orgID := setupReportingTest(t)
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	donor := uuid.New()

	seedDonation(t, db, orgID, donor, 100, domain.ChannelOnline, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	first, err := svc.GetRevenueRollup(context.Background(), orgID, asOf)
	require.NoError(t, err)

	// New rows do not appear until the cache entry expires.
	seedDonation(t, db, orgID, donor, 900, domain.ChannelOnline, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	cached, err := svc.GetRevenueRollup(context.Background(), orgID, asOf)
	require.NoError(t, err)
	assert.True(t, cached[2].TotalRevenue.Equal(first[2].TotalRevenue))

	mr.FastForward(10 * time.Minute)
	fresh, err := svc.GetRevenueRollup(context.Background(), orgID, asOf)
	require.NoError(t, err)
	assert.True(t, fresh[2].TotalRevenue.Equal(decimal.NewFromInt(1000)))
}

func seedParty(t *testing.T, db *gorm.DB, orgID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	party := domain.Party{OrganizationID: orgID, Type: "individual", DisplayName: name}
	require.NoError(t, db.Create(&party).Error)
	return party.ID
}

func TestGetLifecycleSnapshot(t *testing.T) {
	svc, _, db, orgID := setupReportingTest(t)
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	// Prospect with no gifts → acquisition.
	seedParty(t, db, orgID, "Prospect")

	// One-time donor → conversion.
	seedDonation(t, db, orgID, seedParty(t, db, orgID, "Newcomer"), 50, domain.ChannelOnline, asOf.AddDate(0, -1, 0))

	// Repeat major donor, gave recently → stewardship.
	major := seedParty(t, db, orgID, "Patron")
	seedDonation(t, db, orgID, major, 800, domain.ChannelCheck, asOf.AddDate(-1, 0, 0))
	seedDonation(t, db, orgID, major, 700, domain.ChannelCheck, asOf.AddDate(0, -2, 0))

	// Repeat donor gone quiet for over a year → reactivation.
	lapsed := seedParty(t, db, orgID, "Lapsed")
	seedDonation(t, db, orgID, lapsed, 50, domain.ChannelCash, asOf.AddDate(-3, 0, 0))
	seedDonation(t, db, orgID, lapsed, 50, domain.ChannelCash, asOf.AddDate(-2, 0, 0))

	stages, err := svc.GetLifecycleSnapshot(context.Background(), orgID, asOf)
	require.NoError(t, err)

	byStage := map[string]int{}
	for _, s := range stages {
		byStage[s.Stage] = s.Count
	}
	assert.Equal(t, 1, byStage["Acquisition"])
	assert.Equal(t, 1, byStage["Conversion"])
	assert.Equal(t, 1, byStage["Stewardship"])
	assert.Equal(t, 1, byStage["Reactivation"])
	assert.Equal(t, 0, byStage["Cultivation"])
}

func TestGetLifecycleSnapshot_CacheKeyedByAsOf(t *testing.T) {
	svc, _, db, orgID := setupReportingTest(t)

	// Repeat donor whose last gift is June 2024: recent at one as-of date,
	// lapsed at another. Distinct as-of dates must not share a cache entry.
	donor := seedParty(t, db, orgID, "Seasonal")
	seedDonation(t, db, orgID, donor, 50, domain.ChannelCash, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	seedDonation(t, db, orgID, donor, 50, domain.ChannelCash, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	recent, err := svc.GetLifecycleSnapshot(context.Background(), orgID, time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	lapsed, err := svc.GetLifecycleSnapshot(context.Background(), orgID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	byStage := func(stages []LifecycleStage) map[string]int {
		m := map[string]int{}
		for _, s := range stages {
			m[s.Stage] = s.Count
		}
		return m
	}
	assert.Equal(t, 1, byStage(recent)["Cultivation"])
	assert.Equal(t, 0, byStage(recent)["Reactivation"])
	assert.Equal(t, 0, byStage(lapsed)["Cultivation"])
	assert.Equal(t, 1, byStage(lapsed)["Reactivation"])
}

func TestGetRetention(t *testing.T) {
	svc, _, db, orgID := setupReportingTest(t)
	asOf := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	donorA, donorB := uuid.New(), uuid.New()

	// Both gave in 2024, only A returned in 2025.
	seedDonation(t, db, orgID, donorA, 100, domain.ChannelOnline, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	seedDonation(t, db, orgID, donorB, 100, domain.ChannelOnline, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	seedDonation(t, db, orgID, donorA, 100, domain.ChannelOnline, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	rates, err := svc.GetRetention(context.Background(), orgID, asOf)
	require.NoError(t, err)
	require.Len(t, rates, 3)

	y2025 := rates[2]
	assert.Equal(t, 2025, y2025.Year)
	assert.Equal(t, 2, y2025.PriorDonors)
	assert.Equal(t, 1, y2025.Retained)
	assert.InDelta(t, 0.5, y2025.RetentionRate, 0.0001)
}

func TestReporting_NilRedisStillAnswers(t *testing.T) {
	svc, _, db, orgID := setupReportingTest(t)
	svc.Rdb = nil
	seedDonation(t, db, orgID, uuid.New(), 100, domain.ChannelOnline, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	rollups, err := svc.GetRevenueRollup(context.Background(), orgID, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rollups, 3)
	assert.True(t, rollups[2].TotalRevenue.Equal(decimal.NewFromInt(100)))
}
