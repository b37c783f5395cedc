package catalogs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelquarry.ai/internal/sim/quarry/fuel"
)

func TestLoadRepoCatalogs(t *testing.T) {
	c, err := Load("../../../configs")
	require.NoError(t, err)

	assert.Equal(t, "AIR", c.Blocks.Palette[0])
	id, ok := c.BlockID("BEDROCK")
	require.True(t, ok)
	assert.Equal(t, "BEDROCK", c.BlockName(id))
	assert.Empty(t, c.BlockName(9999))
	assert.Len(t, c.Blocks.PaletteDigest, 64)

	tools := c.ToolTable()
	assert.Equal(t, 120, tools.BaseTicks("IRON_PICKAXE"))
	assert.Equal(t, 20, tools.BaseTicks("GOLDEN_PICKAXE"))
	assert.False(t, tools.IsTool("COAL"))

	fuels := c.FuelTable()
	assert.Equal(t, fuel.Charge{Value: 100, Residue: "BUCKET"}, fuels["LAVA_BUCKET"])
	assert.Equal(t, 80, fuels["COAL_BLOCK"].Value)
	assert.True(t, fuels.IsResidue("BUCKET"))

	assert.Equal(t, 16, c.Items.Registry.MaxStack("BUCKET"))
	assert.Equal(t, 250, c.Items.Registry.MaxDamage("IRON_PICKAXE"))
}

func writeCatalogs(t *testing.T, blocks, items string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(blocks), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644))
	return dir
}

func TestLoadRejectsBrokenCatalogs(t *testing.T) {
	cases := map[string][2]string{
		"missing air":      {`[{"id":"STONE"}]`, `[]`},
		"duplicate block":  {`[{"id":"AIR"},{"id":"AIR"}]`, `[]`},
		"tool w/o ticks":   {`[{"id":"AIR"}]`, `[{"id":"P","kind":"TOOL"}]`},
		"unknown residue":  {`[{"id":"AIR"}]`, `[{"id":"L","kind":"FUEL","fuel_value":3,"fuel_residue":"NOPE"}]`},
		"unknown drop":     {`[{"id":"AIR"},{"id":"S","drops_item":"NOPE"}]`, `[]`},
		"malformed blocks": {`{`, `[]`},
	}
	for name, files := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeCatalogs(t, files[0], files[1]))
			assert.Error(t, err)
		})
	}
}
