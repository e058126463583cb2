package ipintel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offertrack/internal/domain/fraud"
	"offertrack/internal/infrastructure/ipintel"
)

type countingProvider struct {
	calls   int
	signals fraud.IPSignals
	err     error
}

func (p *countingProvider) Lookup(_ context.Context, _ string) (fraud.IPSignals, error) {
	p.calls++
	return p.signals, p.err
}

func TestCachedProvider_SecondLookupServedFromCache(t *testing.T) {
	inner := &countingProvider{signals: fraud.IPSignals{IsVPN: true, Country: "NL"}}
	clock := clockwork.NewFakeClock()
	provider := ipintel.NewCachedProvider(inner, ipintel.NewMemoryCache(time.Hour, clock))

	first, err := provider.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	second, err := provider.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProvider_DistinctIPsLookedUpSeparately(t *testing.T) {
	inner := &countingProvider{}
	clock := clockwork.NewFakeClock()
	provider := ipintel.NewCachedProvider(inner, ipintel.NewMemoryCache(time.Hour, clock))

	_, _ = provider.Lookup(context.Background(), "203.0.113.7")
	_, _ = provider.Lookup(context.Background(), "203.0.113.8")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ExpiredEntryRefetched(t *testing.T) {
	inner := &countingProvider{signals: fraud.IPSignals{Country: "DE"}}
	clock := clockwork.NewFakeClock()
	provider := ipintel.NewCachedProvider(inner, ipintel.NewMemoryCache(time.Hour, clock))

	_, err := provider.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = provider.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_FailureNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("provider down")}
	clock := clockwork.NewFakeClock()
	provider := ipintel.NewCachedProvider(inner, ipintel.NewMemoryCache(time.Hour, clock))

	_, err := provider.Lookup(context.Background(), "203.0.113.7")
	require.Error(t, err)

	// Provider recovers; the next lookup goes through
	inner.err = nil
	inner.signals = fraud.IPSignals{Country: "FR"}

	signals, err := provider.Lookup(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "FR", signals.Country)
	assert.Equal(t, 2, inner.calls)
}
