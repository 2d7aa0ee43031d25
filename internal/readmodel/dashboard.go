// Package readmodel builds read-side projections by joining ledger and
// exchange state. Projections carry no invariants of their own and are always
// re-derivable from committed rows.
package readmodel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/teetimex/tee-time-exchange/internal/adapters/crdb"
	"github.com/teetimex/tee-time-exchange/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

type Dashboard struct {
	repo  *crdb.Repository
	cache Cache
	ttl   time.Duration
}

func NewDashboard(repo *crdb.Repository, cache Cache) *Dashboard {
	return &Dashboard{repo: repo, cache: cache, ttl: 30 * time.Second}
}

type Summary struct {
	UpcomingTeeTimes []domain.TeeTime `json:"upcoming_tee_times"`
	IncomingOffers   []domain.Trade   `json:"incoming_offers"`
	OutgoingOffers   []domain.Trade   `json:"outgoing_offers"`
	RecentOutcomes   []domain.Trade   `json:"recent_outcomes"`
}

// Summarize assembles the user's dashboard from committed state, fanning the
// two queries out concurrently. Served through the cache; writers invalidate
// DashboardKey on every mutation touching the user.
func (d *Dashboard) Summarize(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	key := DashboardKey(userID)
	if d.cache != nil {
		var cached Summary
		if ok, err := d.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	var (
		teeTimes []domain.TeeTime
		trades   []domain.Trade
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		var err error
		teeTimes, err = d.repo.ListTeeTimes(gctx, crdb.TeeTimeFilter{
			HolderID: &userID,
			Statuses: []domain.TeeTimeStatus{domain.TeeTimeBooked, domain.TeeTimeTraded},
			DateFrom: &today,
		})
		return err
	})
	g.Go(func() error {
		var err error
		trades, err = d.repo.ListTradesForUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{UpcomingTeeTimes: teeTimes}
	for _, t := range trades {
		switch {
		case t.Status == domain.TradePending && t.OfferedTo == userID:
			s.IncomingOffers = append(s.IncomingOffers, t)
		case t.Status == domain.TradePending && t.OfferedBy == userID:
			s.OutgoingOffers = append(s.OutgoingOffers, t)
		case t.Status.Terminal() && len(s.RecentOutcomes) < 10:
			s.RecentOutcomes = append(s.RecentOutcomes, t)
		}
	}

	if d.cache != nil {
		d.cache.SetJSON(ctx, key, s, d.ttl)
	}
	return s, nil
}
