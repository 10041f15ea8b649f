package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"beacon-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service answers read-only aggregate queries for the dashboard layer. The
// ledger rows are the source of truth; redis is a read-through cache keyed
// by organization.
type Service struct {
	DB       *gorm.DB
	Rdb      *redis.Client
	CacheTTL time.Duration
}

// RevenueRollup is the per-year revenue breakdown by receipt channel.
type RevenueRollup struct {
	Year           int             `json:"year"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	OnlineRevenue  decimal.Decimal `json:"online_revenue"`
	OfflineRevenue decimal.Decimal `json:"offline_revenue"`
	InKindRevenue  decimal.Decimal `json:"in_kind_revenue"`
	FirstGiftCount int             `json:"first_gift_count"`
	MajorGiftCount int             `json:"major_gift_count"`
}

// LifecycleStage is one donor lifecycle bucket.
type LifecycleStage struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// RetentionRate is the share of one year's donors who gave again the next.
type RetentionRate struct {
	Year          int     `json:"year"`
	PriorDonors   int     `json:"prior_donors"`
	Retained      int     `json:"retained"`
	RetentionRate float64 `json:"retention_rate"`
}

var majorGiftThreshold = decimal.NewFromInt(1000)

// GetRevenueRollup returns the last three years of revenue by channel.
func (s *Service) GetRevenueRollup(ctx context.Context, orgID uuid.UUID, asOf time.Time) ([]RevenueRollup, error) {
	key := fmt.Sprintf("reporting:rollup:%s:%d", orgID, asOf.Year())
	var cached []RevenueRollup
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	donations, firstYear, err := s.loadDonations(ctx, orgID)
	if err != nil {
		return nil, err
	}

	currentYear := asOf.Year()
	rollups := make([]RevenueRollup, 0, 3)
	for year := currentYear - 2; year <= currentYear; year++ {
		ru := RevenueRollup{
			Year:           year,
			TotalRevenue:   decimal.Zero,
			OnlineRevenue:  decimal.Zero,
			OfflineRevenue: decimal.Zero,
			InKindRevenue:  decimal.Zero,
		}
		for _, d := range donations {
			if d.ReceivedDate.Year() != year {
				continue
			}
			ru.TotalRevenue = ru.TotalRevenue.Add(d.IntentAmount)
			switch d.ReceivedVia {
			case domain.ChannelOnline:
				ru.OnlineRevenue = ru.OnlineRevenue.Add(d.IntentAmount)
			case domain.ChannelInKind:
				ru.InKindRevenue = ru.InKindRevenue.Add(d.IntentAmount)
			default:
				ru.OfflineRevenue = ru.OfflineRevenue.Add(d.IntentAmount)
			}
			if firstYear[d.PartyID] == year {
				ru.FirstGiftCount++
			}
			if d.IntentAmount.GreaterThanOrEqual(majorGiftThreshold) {
				ru.MajorGiftCount++
			}
		}
		rollups = append(rollups, ru)
	}

	s.writeCache(ctx, key, rollups)
	return rollups, nil
}

// GetLifecycleSnapshot buckets the org's parties into lifecycle stages from
// their giving history: prospects with no gifts, first-time donors, repeat
// donors, major donors, and lapsed donors with nothing in the last year.
func (s *Service) GetLifecycleSnapshot(ctx context.Context, orgID uuid.UUID, asOf time.Time) ([]LifecycleStage, error) {
	key := fmt.Sprintf("reporting:lifecycle:%s:%s", orgID, asOf.UTC().Format("2006-01-02"))
	var cached []LifecycleStage
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	donations, _, err := s.loadDonations(ctx, orgID)
	if err != nil {
		return nil, err
	}

	type donorStats struct {
		count int
		total decimal.Decimal
		last  time.Time
	}
	byDonor := map[uuid.UUID]*donorStats{}
	for _, d := range donations {
		st, ok := byDonor[d.PartyID]
		if !ok {
			st = &donorStats{total: decimal.Zero}
			byDonor[d.PartyID] = st
		}
		st.count++
		st.total = st.total.Add(d.IntentAmount)
		if d.ReceivedDate.After(st.last) {
			st.last = d.ReceivedDate
		}
	}

	// Prospects: live parties with no gifts at all.
	var acquisition int64
	sub := s.DB.WithContext(ctx).Model(&domain.Donation{}).
		Select("party_id").Where("organization_id = ?", orgID)
	if err := s.DB.WithContext(ctx).Model(&domain.Party{}).
		Where("organization_id = ? AND is_deleted = ? AND id NOT IN (?)", orgID, false, sub).
		Count(&acquisition).Error; err != nil {
		return nil, err
	}

	var conversion, cultivation, stewardship, reactivation int
	for _, st := range byDonor {
		daysSinceLast := int(asOf.Sub(st.last).Hours() / 24)
		switch {
		case st.count == 1:
			conversion++
		case st.total.GreaterThanOrEqual(majorGiftThreshold) && daysSinceLast < 365:
			stewardship++
		case daysSinceLast > 365:
			reactivation++
		default:
			cultivation++
		}
	}

	stages := []LifecycleStage{
		{Stage: "Acquisition", Count: int(acquisition)},
		{Stage: "Conversion", Count: conversion},
		{Stage: "Cultivation", Count: cultivation},
		{Stage: "Stewardship", Count: stewardship},
		{Stage: "Reactivation", Count: reactivation},
	}
	s.writeCache(ctx, key, stages)
	return stages, nil
}

// GetRetention computes year-over-year donor retention for the last three
// year pairs.
func (s *Service) GetRetention(ctx context.Context, orgID uuid.UUID, asOf time.Time) ([]RetentionRate, error) {
	key := fmt.Sprintf("reporting:retention:%s:%d", orgID, asOf.Year())
	var cached []RetentionRate
	if s.readCache(ctx, key, &cached) {
		return cached, nil
	}

	donations, _, err := s.loadDonations(ctx, orgID)
	if err != nil {
		return nil, err
	}

	donorsByYear := map[int]map[uuid.UUID]bool{}
	for _, d := range donations {
		year := d.ReceivedDate.Year()
		if donorsByYear[year] == nil {
			donorsByYear[year] = map[uuid.UUID]bool{}
		}
		donorsByYear[year][d.PartyID] = true
	}

	currentYear := asOf.Year()
	rates := make([]RetentionRate, 0, 3)
	for year := currentYear - 2; year <= currentYear; year++ {
		prior := donorsByYear[year-1]
		retained := 0
		for donor := range prior {
			if donorsByYear[year][donor] {
				retained++
			}
		}
		rate := RetentionRate{Year: year, PriorDonors: len(prior), Retained: retained}
		if len(prior) > 0 {
			rate.RetentionRate = float64(retained) / float64(len(prior))
		}
		rates = append(rates, rate)
	}

	s.writeCache(ctx, key, rates)
	return rates, nil
}

// loadDonations fetches an org's donations plus each donor's first-gift year.
func (s *Service) loadDonations(ctx context.Context, orgID uuid.UUID) ([]domain.Donation, map[uuid.UUID]int, error) {
	var donations []domain.Donation
	if err := s.DB.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("received_date ASC").
		Find(&donations).Error; err != nil {
		return nil, nil, err
	}
	firstYear := map[uuid.UUID]int{}
	for _, d := range donations {
		if _, ok := firstYear[d.PartyID]; !ok {
			firstYear[d.PartyID] = d.ReceivedDate.Year()
		}
	}
	return donations, firstYear, nil
}

func (s *Service) readCache(ctx context.Context, key string, out interface{}) bool {
	if s.Rdb == nil {
		return false
	}
	raw, err := s.Rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (s *Service) writeCache(ctx context.Context, key string, value interface{}) {
	if s.Rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Rdb.Set(ctx, key, raw, s.CacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Reporting cache write failed")
	}
}
