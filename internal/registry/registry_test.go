package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/gaschecker/internal/types"
)

func TestNewDefaults(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, 5, r.Len())

	spec, ok := r.Lookup(types.ChainEthereum)
	require.True(t, ok)
	assert.Equal(t, int64(1), spec.ChainID)
	assert.Equal(t, "ETH", spec.Symbol)
	assert.NotEmpty(t, spec.Endpoints)

	spec, ok = r.LookupID(8453)
	require.True(t, ok)
	assert.Equal(t, types.ChainBase, spec.Chain)

	_, ok = r.Lookup("dogecoin")
	assert.False(t, ok)
	_, ok = r.LookupID(999999)
	assert.False(t, ok)
}

func TestEndpointOverridePrepends(t *testing.T) {
	r, err := New(map[types.SupportedChain]string{
		types.ChainEthereum: "https://eth.internal.example.com",
	})
	require.NoError(t, err)

	spec, ok := r.Lookup(types.ChainEthereum)
	require.True(t, ok)
	assert.Equal(t, "https://eth.internal.example.com", spec.Endpoints[0], "override must be tried first")
	assert.Equal(t, "https://ethereum.publicnode.com", spec.Endpoints[1])

	// Other chains are untouched
	spec, _ = r.Lookup(types.ChainBase)
	assert.Equal(t, "https://base.publicnode.com", spec.Endpoints[0])
}

func TestValidateSpec(t *testing.T) {
	valid := types.ChainSpec{
		ChainID:    1,
		Chain:      "testchain",
		Name:       "Test",
		Symbol:     "TST",
		Endpoints:  []string{"https://rpc.example.com"},
		Thresholds: types.Thresholds{Low: 1, Medium: 2, High: 3},
	}

	tests := []struct {
		name   string
		mutate func(*types.ChainSpec)
		errMsg string
	}{
		{"valid", func(s *types.ChainSpec) {}, ""},
		{"equal thresholds allowed", func(s *types.ChainSpec) {
			s.Thresholds = types.Thresholds{Low: 2, Medium: 2, High: 2}
		}, ""},
		{"zero chain id", func(s *types.ChainSpec) { s.ChainID = 0 }, "chain id"},
		{"empty endpoints", func(s *types.ChainSpec) { s.Endpoints = nil }, "endpoint list"},
		{"blank endpoint", func(s *types.ChainSpec) { s.Endpoints = []string{""} }, "is empty"},
		{"negative low", func(s *types.ChainSpec) { s.Thresholds.Low = -1 }, "non-negative"},
		{"descending thresholds", func(s *types.ChainSpec) {
			s.Thresholds = types.Thresholds{Low: 3, Medium: 2, High: 1}
		}, "non-decreasing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			err := ValidateSpec(spec)
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestFromSpecsRejectsDuplicates(t *testing.T) {
	spec := types.ChainSpec{
		ChainID:    1,
		Chain:      "testchain",
		Endpoints:  []string{"https://rpc.example.com"},
		Thresholds: types.Thresholds{Low: 1, Medium: 2, High: 3},
	}

	_, err := FromSpecs([]types.ChainSpec{spec, spec})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate chain")
}

func TestListPreservesOrder(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	chains := r.Chains()
	assert.Equal(t, []types.SupportedChain{
		types.ChainEthereum,
		types.ChainBase,
		types.ChainArbitrum,
		types.ChainOptimism,
		types.ChainPolygon,
	}, chains)
	assert.Len(t, r.List(), len(chains))
}
