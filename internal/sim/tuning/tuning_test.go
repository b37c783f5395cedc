package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoadRepoConfig(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, 20, tu.TickRateHz)
	assert.Equal(t, 5, tu.Upgrades().BaseArea)
	assert.Equal(t, 15, tu.Upgrades().MaxArea)
	assert.Len(t, tu.Upgrades().SpeedMultipliers, 6)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate_hz: 10\nquarry:\n  stack_limit: 16\n"), 0o644))

	tu, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, tu.TickRateHz)
	assert.Equal(t, 16, tu.Quarry.StackLimit)
	assert.Equal(t, Defaults().World, tu.World)
	assert.Equal(t, Defaults().Quarry.MaxArea, tu.Quarry.MaxArea)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Tuning){
		"even base area":        func(t *Tuning) { t.Quarry.BaseArea = 4 },
		"empty speed table":     func(t *Tuning) { t.Quarry.SpeedMultipliers = nil },
		"increasing multiplier": func(t *Tuning) { t.Quarry.SpeedMultipliers = []float64{1, 0.5, 0.7} },
		"zero tick rate":        func(t *Tuning) { t.TickRateHz = 0 },
		"surface above top":     func(t *Tuning) { t.World.SurfaceY = t.World.BottomY + t.World.Height },
		"zero stack limit":      func(t *Tuning) { t.Quarry.StackLimit = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tu := Defaults()
			mutate(&tu)
			assert.Error(t, tu.Validate())
		})
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_rate_hz: [oops\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
