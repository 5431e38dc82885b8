package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy(t *testing.T) {
	t.Run("DefaultIsValid", func(t *testing.T) {
		require.NoError(t, DefaultPolicy().Validate())
	})

	t.Run("LoadOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		content := `
weights:
  activity: 0.40
  community: 0.20
  maintenance: 0.20
  documentation: 0.20
recommend_below: 50
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		p, err := LoadPolicy(path)
		require.NoError(t, err)
		assert.Equal(t, 0.40, p.Weights.Activity)
		assert.Equal(t, 50, p.RecommendBelow)
		// Untouched sections keep their defaults.
		assert.Equal(t, 12, p.Activity.RecentWeeks)
		assert.Equal(t, 35, p.Documentation.Readme)
	})

	t.Run("LoadRejectsBadWeights", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		content := `
weights:
  activity: 0.90
  community: 0.50
  maintenance: 0.20
  documentation: 0.20
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := LoadPolicy(path)
		assert.ErrorContains(t, err, "weights must sum to 1")
	})

	t.Run("LoadMissingFile", func(t *testing.T) {
		_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("TierSelection", func(t *testing.T) {
		tiers := []MinTier{{Min: 100, Points: 50}, {Min: 50, Points: 40}, {Min: 1, Points: 5}}
		assert.Equal(t, 50, minPoints(tiers, 250))
		assert.Equal(t, 40, minPoints(tiers, 99))
		assert.Equal(t, 5, minPoints(tiers, 1))
		assert.Equal(t, 0, minPoints(tiers, 0))

		ladders := []MaxTier{{Max: 2, Points: 25}, {Max: 7, Points: 20}, {Max: 30, Points: 10}}
		assert.Equal(t, 25, maxPoints(ladders, 1.5))
		assert.Equal(t, 20, maxPoints(ladders, 6))
		assert.Equal(t, 10, maxPoints(ladders, 29))
		assert.Equal(t, 0, maxPoints(ladders, 31))
	})
}
