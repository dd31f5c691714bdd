package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/gaschecker/internal/model"
	"github.com/yourorg/gaschecker/internal/registry"
	"github.com/yourorg/gaschecker/internal/rpc"
	"github.com/yourorg/gaschecker/internal/types"
)

// fakeFetcher returns canned quotes or errors per chain and counts calls.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  map[types.SupportedChain]int
	quotes map[types.SupportedChain]rpc.Quote
	errs   map[types.SupportedChain]error
	delays map[types.SupportedChain]time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:  make(map[types.SupportedChain]int),
		quotes: make(map[types.SupportedChain]rpc.Quote),
		errs:   make(map[types.SupportedChain]error),
		delays: make(map[types.SupportedChain]time.Duration),
	}
}

func (f *fakeFetcher) succeed(chain types.SupportedChain, gwei float64) {
	wei := new(big.Int)
	new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9)).Int(wei)
	f.quotes[chain] = rpc.Quote{Wei: wei, Gwei: gwei, Endpoint: "https://" + string(chain) + ".example.com", Attempts: 1}
}

func (f *fakeFetcher) fail(chain types.SupportedChain, err error) {
	f.errs[chain] = err
}

func (f *fakeFetcher) FetchGasPrice(ctx context.Context, spec types.ChainSpec) (rpc.Quote, error) {
	f.mu.Lock()
	f.calls[spec.Chain]++
	delay := f.delays[spec.Chain]
	err := f.errs[spec.Chain]
	quote := f.quotes[spec.Chain]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return rpc.Quote{}, err
	}
	return quote, nil
}

func (f *fakeFetcher) callCount(chain types.SupportedChain) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[chain]
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func testRegistry(t *testing.T, chains ...types.SupportedChain) *registry.Registry {
	t.Helper()
	specs := make([]types.ChainSpec, 0, len(chains))
	for i, chain := range chains {
		specs = append(specs, types.ChainSpec{
			ChainID:    int64(i + 1),
			Chain:      chain,
			Name:       string(chain),
			Symbol:     "ETH",
			Endpoints:  []string{"https://" + string(chain) + ".example.com"},
			Thresholds: types.Thresholds{Low: 15, Medium: 30, High: 60},
		})
	}
	reg, err := registry.FromSpecs(specs)
	require.NoError(t, err)
	return reg
}

func TestFetchOne(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.succeed("chain-a", 12.5)
	o := New(testRegistry(t, "chain-a"), fetcher)

	reading, err := o.FetchOne(context.Background(), "chain-a")
	require.NoError(t, err)

	assert.Equal(t, types.SupportedChain("chain-a"), reading.Chain)
	assert.Equal(t, int64(1), reading.ChainID)
	assert.InDelta(t, 12.5, reading.Gwei, 1e-9)
	assert.Equal(t, model.LevelLow, reading.Level)
	assert.Equal(t, "https://chain-a.example.com", reading.SourceEndpoint)
	assert.False(t, reading.CollectedAt.IsZero())
}

func TestFetchOneUnknownChainSkipsNetwork(t *testing.T) {
	fetcher := newFakeFetcher()
	o := New(testRegistry(t, "chain-a"), fetcher)

	_, err := o.FetchOne(context.Background(), "no-such-chain")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownChain)
	assert.Equal(t, 0, fetcher.totalCalls(), "unknown chain must not trigger any fetch")
}

func TestFetchOnePropagatesExhaustion(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.fail("chain-a", &rpc.ExhaustedError{Chain: "chain-a", EndpointsTried: 3})
	o := New(testRegistry(t, "chain-a"), fetcher)

	_, err := o.FetchOne(context.Background(), "chain-a")
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrAllEndpointsFailed)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.succeed("chain-a", 20)
	fetcher.succeed("chain-b", 0.01)
	fetcher.succeed("chain-c", 5)
	fetcher.succeed("chain-e", 42)
	fetcher.fail("chain-d", &rpc.ExhaustedError{Chain: "chain-d", EndpointsTried: 2})
	fetcher.delays["chain-d"] = 100 * time.Millisecond

	o := New(testRegistry(t, "chain-a", "chain-b", "chain-c", "chain-d", "chain-e"), fetcher)

	results := o.FetchAll(context.Background())
	require.Len(t, results, 5, "every registered chain appears exactly once")

	failures := 0
	for chain, result := range results {
		if chain == "chain-d" {
			failures++
			assert.Nil(t, result.Reading)
			assert.ErrorIs(t, result.Err, rpc.ErrAllEndpointsFailed)
			continue
		}
		require.NoError(t, result.Err, "chain %s must not be tainted by chain-d", chain)
		require.NotNil(t, result.Reading)
		assert.Equal(t, chain, result.Reading.Chain)
	}
	assert.Equal(t, 1, failures)

	for _, chain := range []types.SupportedChain{"chain-a", "chain-b", "chain-c", "chain-d", "chain-e"} {
		assert.Equal(t, 1, fetcher.callCount(chain))
	}
}

func TestRecommend(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.succeed("chain-a", 20)
	fetcher.succeed("chain-b", 0.01)
	fetcher.succeed("chain-c", 5)
	fetcher.fail("chain-d", errors.New("upstream down"))

	o := New(testRegistry(t, "chain-a", "chain-b", "chain-c", "chain-d"), fetcher)

	rec, err := o.Recommend(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.SupportedChain("chain-b"), rec.Recommendation)
	assert.Contains(t, rec.Reason, "chain-b")
	assert.Contains(t, rec.Reason, "0.01")

	require.Len(t, rec.Ranking, 3)
	assert.Equal(t, types.SupportedChain("chain-b"), rec.Ranking[0].Chain)
	assert.Equal(t, types.SupportedChain("chain-c"), rec.Ranking[1].Chain)
	assert.Equal(t, types.SupportedChain("chain-a"), rec.Ranking[2].Chain)

	require.Len(t, rec.Unavailable, 1)
	assert.Equal(t, types.SupportedChain("chain-d"), rec.Unavailable[0].Chain)
	assert.Contains(t, rec.Unavailable[0].Error, "upstream down")
}

func TestRecommendAllChainsFailed(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.fail("chain-a", errors.New("down"))
	fetcher.fail("chain-b", errors.New("down"))

	o := New(testRegistry(t, "chain-a", "chain-b"), fetcher)

	_, err := o.Recommend(context.Background())
	assert.ErrorIs(t, err, ErrNoReadings)
}
