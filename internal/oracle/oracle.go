// Package oracle orchestrates gas price fetches across the registered
// chains: single-chain lookups, concurrent all-chain fan-out, and the
// cheapest-chain recommendation.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/gaschecker/internal/aggregate"
	"github.com/yourorg/gaschecker/internal/classify"
	"github.com/yourorg/gaschecker/internal/model"
	"github.com/yourorg/gaschecker/internal/registry"
	"github.com/yourorg/gaschecker/internal/rpc"
	"github.com/yourorg/gaschecker/internal/types"
)

// ErrUnknownChain is returned when a caller asks for a chain that is not in
// the registry. No network call is made in that case.
var ErrUnknownChain = errors.New("unknown chain")

// ErrNoReadings is returned by Recommend when not a single chain produced a
// successful reading.
var ErrNoReadings = errors.New("no chain produced a reading")

// Fetcher is the part of the fallback client the oracle depends on.
type Fetcher interface {
	FetchGasPrice(ctx context.Context, spec types.ChainSpec) (rpc.Quote, error)
}

// Oracle ties the registry, the fallback client and the classifier
// together. It holds no mutable state and is safe for concurrent use.
type Oracle struct {
	registry *registry.Registry
	fetcher  Fetcher
	tracer   trace.Tracer
}

// New creates an oracle over the given registry and fallback client.
func New(reg *registry.Registry, fetcher Fetcher) *Oracle {
	return &Oracle{
		registry: reg,
		fetcher:  fetcher,
		tracer:   otel.Tracer("gaschecker/oracle"),
	}
}

// FetchOne returns a classified reading for a single chain. An unregistered
// chain fails immediately with ErrUnknownChain.
func (o *Oracle) FetchOne(ctx context.Context, chain types.SupportedChain) (*model.Reading, error) {
	spec, ok := o.registry.Lookup(chain)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
	return o.fetchSpec(ctx, spec)
}

// fetchSpec runs one fallback sequence and attaches the classified level.
func (o *Oracle) fetchSpec(ctx context.Context, spec types.ChainSpec) (*model.Reading, error) {
	ctx, span := o.tracer.Start(ctx, "oracle.fetch",
		trace.WithAttributes(attribute.String("chain", string(spec.Chain))))
	defer span.End()

	quote, err := o.fetcher.FetchGasPrice(ctx, spec)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Float64("gas.gwei", quote.Gwei))
	return &model.Reading{
		Chain:          spec.Chain,
		Name:           spec.Name,
		ChainID:        spec.ChainID,
		Symbol:         spec.Symbol,
		Wei:            quote.Wei,
		Gwei:           quote.Gwei,
		Level:          classify.Classify(quote.Gwei, spec.Thresholds),
		SourceEndpoint: quote.Endpoint,
		CollectedAt:    time.Now().UTC(),
	}, nil
}

// ChainResult is the per-chain outcome of FetchAll: exactly one of Reading
// and Err is set.
type ChainResult struct {
	Reading *model.Reading
	Err     error
}

// FetchAll queries every registered chain concurrently. Each chain runs its
// own fallback sequence in its own goroutine; one chain's failure never
// cancels or delays another's. Every registered chain appears in the result
// exactly once.
func (o *Oracle) FetchAll(ctx context.Context) map[types.SupportedChain]ChainResult {
	specs := o.registry.List()

	type chainOutcome struct {
		chain   types.SupportedChain
		reading *model.Reading
		err     error
	}
	resultCh := make(chan chainOutcome, len(specs))

	for _, spec := range specs {
		go func(spec types.ChainSpec) {
			reading, err := o.fetchSpec(ctx, spec)
			resultCh <- chainOutcome{chain: spec.Chain, reading: reading, err: err}
		}(spec)
	}

	results := make(map[types.SupportedChain]ChainResult, len(specs))
	for range specs {
		outcome := <-resultCh
		if outcome.err != nil {
			logrus.Warnf("Fetch failed for chain %s: %v", outcome.chain, outcome.err)
		}
		results[outcome.chain] = ChainResult{Reading: outcome.reading, Err: outcome.err}
	}

	return results
}

// Unavailable identifies a chain that produced no reading in a batch.
type Unavailable struct {
	Chain types.SupportedChain `json:"chain"`
	Error string               `json:"error"`
}

// Recommendation names the cheapest chain to transact on right now, with
// the full ranking and the chains that could not be read.
type Recommendation struct {
	Recommendation types.SupportedChain `json:"recommendation"`
	Reason         string               `json:"reason"`
	Ranking        []aggregate.Ranked   `json:"ranking"`
	Unavailable    []Unavailable        `json:"unavailable,omitempty"`
}

// Recommend fetches all chains and ranks the successful readings by raw
// gwei price, cheapest first. Failed chains are excluded from the ranking
// and reported separately so the caller knows coverage was incomplete.
func (o *Oracle) Recommend(ctx context.Context) (*Recommendation, error) {
	results := o.FetchAll(ctx)

	readings := make([]*model.Reading, 0, len(results))
	var unavailable []Unavailable
	// Walk in registry order so the unavailable list is deterministic
	for _, chain := range o.registry.Chains() {
		result := results[chain]
		if result.Err != nil {
			unavailable = append(unavailable, Unavailable{Chain: chain, Error: result.Err.Error()})
			continue
		}
		readings = append(readings, result.Reading)
	}

	ranking := aggregate.Rank(readings)
	top, ok := aggregate.Cheapest(ranking)
	if !ok {
		return nil, ErrNoReadings
	}

	return &Recommendation{
		Recommendation: top.Chain,
		Reason:         fmt.Sprintf("%s has lowest gas at %g gwei", top.Name, top.Gwei),
		Ranking:        ranking,
		Unavailable:    unavailable,
	}, nil
}
