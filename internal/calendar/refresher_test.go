package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bist-takvim/internal/clock"
	"bist-takvim/internal/models"
)

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	src := &fakeSource{name: "kap", records: []models.RawRecord{{Title: "Bilanço", DateText: "31.03.2025"}}}
	agg, _ := newTestAggregator(t, clock.NewFixed(aggToday), src)
	r := NewRefresher(agg, []string{"THYAO", "GARAN"}, 0, zerolog.Nop())

	results := r.RefreshAll(context.Background(), []string{"THYAO", "bad symbol", "GARAN"}, false)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].OK)
	assert.Equal(t, 1, results[2].Events)

	results = r.RefreshAll(context.Background(), nil, false)
	require.Len(t, results, 2)
	assert.True(t, results[0].Skipped)
}

func TestRefreshAllPacesSymbols(t *testing.T) {
	agg, _ := newTestAggregator(t, clock.NewFixed(aggToday), &fakeSource{name: "kap"})
	r := NewRefresher(agg, []string{"THYAO", "GARAN", "AKBNK"}, 30*time.Millisecond, zerolog.Nop())

	start := time.Now()
	results := r.RefreshAll(context.Background(), nil, true)
	require.Len(t, results, 3)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRefreshAllStopsWaitingOnCancel(t *testing.T) {
	agg, _ := newTestAggregator(t, clock.NewFixed(aggToday), &fakeSource{name: "kap"})
	r := NewRefresher(agg, nil, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := r.RefreshAll(ctx, []string{"THYAO", "GARAN"}, true)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.False(t, res.OK)
	}
}

func TestRefresherRejectsBadSchedule(t *testing.T) {
	agg, _ := newTestAggregator(t, clock.NewFixed(aggToday))
	r := NewRefresher(agg, nil, 0, zerolog.Nop())
	assert.Error(t, r.Start(context.Background(), "not a schedule"))
}
