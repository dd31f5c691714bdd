// Package registry holds the static per-chain configuration and provides
// lookups by chain name and chain id.
package registry

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/gaschecker/internal/types"
)

// defaultSpecs lists the built-in chains with their public endpoints in
// priority order. Thresholds are tuned per chain: L2 gas prices sit orders
// of magnitude below mainnet, so a shared table would classify everything
// on an L2 as LOW.
var defaultSpecs = []types.ChainSpec{
	{
		ChainID: 1,
		Chain:   types.ChainEthereum,
		Name:    "Ethereum",
		Symbol:  "ETH",
		Endpoints: []string{
			"https://ethereum.publicnode.com",
			"https://eth.drpc.org",
			"https://1rpc.io/eth",
		},
		Thresholds: types.Thresholds{Low: 15, Medium: 30, High: 60},
	},
	{
		ChainID: 8453,
		Chain:   types.ChainBase,
		Name:    "Base",
		Symbol:  "ETH",
		Endpoints: []string{
			"https://base.publicnode.com",
			"https://base.drpc.org",
			"https://1rpc.io/base",
		},
		Thresholds: types.Thresholds{Low: 0.005, Medium: 0.01, High: 0.05},
	},
	{
		ChainID: 42161,
		Chain:   types.ChainArbitrum,
		Name:    "Arbitrum One",
		Symbol:  "ETH",
		Endpoints: []string{
			"https://arbitrum-one.publicnode.com",
			"https://arb1.arbitrum.io/rpc",
		},
		Thresholds: types.Thresholds{Low: 0.02, Medium: 0.1, High: 0.5},
	},
	{
		ChainID: 10,
		Chain:   types.ChainOptimism,
		Name:    "Optimism",
		Symbol:  "ETH",
		Endpoints: []string{
			"https://optimism.publicnode.com",
			"https://mainnet.optimism.io",
		},
		Thresholds: types.Thresholds{Low: 0.001, Medium: 0.01, High: 0.1},
	},
	{
		ChainID: 137,
		Chain:   types.ChainPolygon,
		Name:    "Polygon",
		Symbol:  "POL",
		Endpoints: []string{
			"https://polygon-bor.publicnode.com",
			"https://polygon-rpc.com",
		},
		Thresholds: types.Thresholds{Low: 30, Medium: 100, High: 300},
	},
}

// Registry is an immutable collection of chain specs. It is built once at
// startup and shared read-only by all requests, so no locking is required.
type Registry struct {
	specs map[types.SupportedChain]types.ChainSpec
	byID  map[int64]types.SupportedChain
	order []types.SupportedChain
}

// New builds a registry from the built-in specs. overrides maps a chain to
// a primary endpoint URL that is prepended to the chain's endpoint list,
// so an operator-supplied endpoint is always tried first.
func New(overrides map[types.SupportedChain]string) (*Registry, error) {
	return fromSpecs(defaultSpecs, overrides)
}

// FromSpecs builds a registry from an explicit spec list. Used by tests and
// by callers that manage their own chain set.
func FromSpecs(specs []types.ChainSpec) (*Registry, error) {
	return fromSpecs(specs, nil)
}

func fromSpecs(specs []types.ChainSpec, overrides map[types.SupportedChain]string) (*Registry, error) {
	r := &Registry{
		specs: make(map[types.SupportedChain]types.ChainSpec, len(specs)),
		byID:  make(map[int64]types.SupportedChain, len(specs)),
	}

	for _, spec := range specs {
		if override, ok := overrides[spec.Chain]; ok && override != "" {
			endpoints := make([]string, 0, len(spec.Endpoints)+1)
			endpoints = append(endpoints, override)
			endpoints = append(endpoints, spec.Endpoints...)
			spec.Endpoints = endpoints
			logrus.Infof("Primary endpoint override for %s: %s", spec.Chain, override)
		}

		if err := ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("invalid spec for chain %q: %w", spec.Chain, err)
		}
		if _, exists := r.specs[spec.Chain]; exists {
			return nil, fmt.Errorf("duplicate chain %q", spec.Chain)
		}
		if _, exists := r.byID[spec.ChainID]; exists {
			return nil, fmt.Errorf("duplicate chain id %d", spec.ChainID)
		}

		r.specs[spec.Chain] = spec
		r.byID[spec.ChainID] = spec.Chain
		r.order = append(r.order, spec.Chain)
	}

	return r, nil
}

// ValidateSpec checks the invariants every chain spec must satisfy before
// it is admitted into the registry.
func ValidateSpec(spec types.ChainSpec) error {
	if spec.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", spec.ChainID)
	}
	if spec.Chain == "" {
		return fmt.Errorf("chain name must not be empty")
	}
	if len(spec.Endpoints) == 0 {
		return fmt.Errorf("endpoint list must not be empty")
	}
	for i, endpoint := range spec.Endpoints {
		if endpoint == "" {
			return fmt.Errorf("endpoint %d is empty", i)
		}
	}
	t := spec.Thresholds
	if t.Low < 0 {
		return fmt.Errorf("low threshold must be non-negative, got %v", t.Low)
	}
	if t.Low > t.Medium || t.Medium > t.High {
		return fmt.Errorf("thresholds must be non-decreasing, got %v/%v/%v", t.Low, t.Medium, t.High)
	}
	return nil
}

// Lookup returns the spec for a chain name.
func (r *Registry) Lookup(chain types.SupportedChain) (types.ChainSpec, bool) {
	spec, ok := r.specs[chain]
	return spec, ok
}

// LookupID returns the spec for a numeric chain id.
func (r *Registry) LookupID(chainID int64) (types.ChainSpec, bool) {
	chain, ok := r.byID[chainID]
	if !ok {
		return types.ChainSpec{}, false
	}
	return r.specs[chain], true
}

// List returns all specs in registration order.
func (r *Registry) List() []types.ChainSpec {
	specs := make([]types.ChainSpec, 0, len(r.order))
	for _, chain := range r.order {
		specs = append(specs, r.specs[chain])
	}
	return specs
}

// Chains returns the registered chain names in registration order.
func (r *Registry) Chains() []types.SupportedChain {
	chains := make([]types.SupportedChain, len(r.order))
	copy(chains, r.order)
	return chains
}

// Len returns the number of registered chains.
func (r *Registry) Len() int {
	return len(r.order)
}
