// Package types contains shared type definitions used across multiple packages
package types

// SupportedChain represents a blockchain network supported by the oracle
type SupportedChain string

// Supported blockchain networks
const (
	ChainEthereum SupportedChain = "ethereum"
	ChainBase     SupportedChain = "base"
	ChainArbitrum SupportedChain = "arbitrum"
	ChainOptimism SupportedChain = "optimism"
	ChainPolygon  SupportedChain = "polygon"
)

// AllChains lists every supported chain in registration order.
var AllChains = []SupportedChain{
	ChainEthereum,
	ChainBase,
	ChainArbitrum,
	ChainOptimism,
	ChainPolygon,
}

// Thresholds defines the ascending gwei boundaries used to classify a gas
// price into severity levels. The bands are half-open: a price equal to a
// boundary falls into the lower band.
type Thresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// ChainSpec holds the static configuration for a single blockchain network.
// Specs are constructed once at startup and shared read-only afterwards.
type ChainSpec struct {
	// Numeric chain identifier (EIP-155)
	ChainID int64 `json:"chainId"`

	// Machine name used in URLs and tool parameters
	Chain SupportedChain `json:"chain"`

	// Human-readable network name
	Name string `json:"name"`

	// Native token symbol
	Symbol string `json:"symbol"`

	// JSON-RPC endpoints in priority order; the first one is tried first
	Endpoints []string `json:"endpoints"`

	// Classification boundaries in gwei
	Thresholds Thresholds `json:"thresholds"`
}
