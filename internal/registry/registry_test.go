package registry_test

import (
	"errors"
	"testing"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/registry"
	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Get(t *testing.T) {
	reg := registry.NewRegistry()

	t.Run("Should return definition for known model", func(t *testing.T) {
		def, err := reg.Get("moving_average")
		require.NoError(t, err)
		assert.Equal(t, "moving_average", def.ID)
		assert.True(t, def.ParticipatesInGridSearch)
		assert.NotEmpty(t, def.ParameterGrid["window"])
	})

	t.Run("Should wrap not-found sentinel for unknown model", func(t *testing.T) {
		def, err := reg.Get("croston")
		assert.Nil(t, def)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})
}

func TestRegistry_GridParticipants(t *testing.T) {
	reg := registry.NewRegistry()

	participants := reg.GridParticipants()
	require.NotEmpty(t, participants)
	for _, def := range participants {
		assert.True(t, def.ParticipatesInGridSearch, def.ID)
		assert.NotEmpty(t, def.ParameterGrid, def.ID)
	}

	// Baseline models never enter grid search
	assert.False(t, reg.ParticipatesInGridSearch("naive"))
	assert.False(t, reg.ParticipatesInGridSearch("seasonal_naive"))
	assert.False(t, reg.ParticipatesInGridSearch("linear_trend"))
	assert.False(t, reg.ParticipatesInGridSearch("unknown_model"))
}

func TestGridSize(t *testing.T) {
	assert.Equal(t, 0, registry.GridSize(nil))
	assert.Equal(t, 0, registry.GridSize(map[string][]float64{}))
	assert.Equal(t, 3, registry.GridSize(map[string][]float64{"a": {1, 2, 3}}))
	assert.Equal(t, 12, registry.GridSize(map[string][]float64{
		"alpha": {0.1, 0.3, 0.5, 0.7},
		"beta":  {0.1, 0.2, 0.3},
	}))
}

func TestParameterNames(t *testing.T) {
	names := registry.ParameterNames(map[string][]float64{
		"gamma": {0.1},
		"alpha": {0.1},
		"beta":  {0.1},
	})
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, names)
}

func TestRequiredObservations(t *testing.T) {
	// ceil(10 / (1 - 0.2)) = ceil(12.5) = 13
	assert.Equal(t, 13, registry.RequiredObservations(10, 0.2))
	// ceil(4 / 0.8) = 5
	assert.Equal(t, 5, registry.RequiredObservations(4, 0.2))
	// ceil(24 / 0.8) = 30
	assert.Equal(t, 30, registry.RequiredObservations(24, 0.2))
	// No split reserves nothing
	assert.Equal(t, 10, registry.RequiredObservations(10, 0))
}

func TestIsEligible(t *testing.T) {
	t.Run("Boundary equality is eligible", func(t *testing.T) {
		assert.True(t, registry.IsEligible(13, 10, 0.2))
		assert.False(t, registry.IsEligible(12, 10, 0.2))
	})

	t.Run("Short history is filtered", func(t *testing.T) {
		assert.False(t, registry.IsEligible(4, 10, 0.2))
	})

	t.Run("Long history is always eligible", func(t *testing.T) {
		assert.True(t, registry.IsEligible(120, 24, 0.2))
	})
}

func TestNewRegistryWith(t *testing.T) {
	reg := registry.NewRegistryWith([]*registry.ModelDefinition{
		{ID: "custom", Name: "Custom", ParticipatesInGridSearch: true,
			ParameterGrid: map[string][]float64{"k": {1, 2}}},
		{ID: "custom", Name: "Duplicate"},
	})

	defs := reg.List()
	require.Len(t, defs, 1)
	assert.Equal(t, "Custom", defs[0].Name)
}
