package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mining"
	"voxelquarry.ai/internal/sim/quarry/fuel"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
}

type BlockCatalog struct {
	Palette       []string
	Index         map[string]uint16
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Breakable bool   `json:"breakable"`
	DropsItem string `json:"drops_item,omitempty"`
	DropCount int    `json:"drop_count,omitempty"`
	// Fortune marks blocks whose drop count scales with the fortune level.
	Fortune bool `json:"fortune,omitempty"`
	// SilkItem is what silk touch yields; empty means the block's own id.
	SilkItem string `json:"silk_item,omitempty"`
}

type ItemCatalog struct {
	Defs       map[string]item.Def
	DefsDigest string
	Registry   *item.Registry
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id != "AIR" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	// AIR is palette id 0 so zeroed chunks read as empty.
	if _, ok := out.Defs["AIR"]; !ok {
		return fmt.Errorf("blocks.json: missing AIR")
	}
	ids = append([]string{"AIR"}, ids...)

	out.Palette = ids
	out.Index = make(map[string]uint16, len(ids))
	for i, id := range ids {
		out.Index[id] = uint16(i)
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.DefsDigest = sha256Hex(raw)

	var defs []item.Def
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = make(map[string]item.Def, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		if d.Kind == "TOOL" && d.ToolTicks <= 0 {
			return fmt.Errorf("items.json: tool %s needs tool_ticks > 0", d.ID)
		}
		if d.FuelValue < 0 {
			return fmt.Errorf("items.json: %s has negative fuel_value", d.ID)
		}
		out.Defs[d.ID] = d
	}
	out.Registry = item.NewRegistry(defs)
	return nil
}

func (c *Catalogs) crossCheck() error {
	for _, d := range c.Items.Defs {
		if d.FuelResidue != "" {
			if _, ok := c.Items.Defs[d.FuelResidue]; !ok {
				return fmt.Errorf("items.json: %s leaves unknown residue %s", d.ID, d.FuelResidue)
			}
		}
	}
	for _, b := range c.Blocks.Defs {
		for _, id := range []string{b.DropsItem, b.SilkItem} {
			if id == "" {
				continue
			}
			if _, ok := c.Items.Defs[id]; !ok {
				return fmt.Errorf("blocks.json: %s drops unknown item %s", b.ID, id)
			}
		}
	}
	return nil
}

// FuelTable derives the fuel charges from item definitions.
func (c *Catalogs) FuelTable() fuel.Table {
	t := fuel.Table{}
	for _, d := range c.Items.Defs {
		if d.FuelValue > 0 {
			t[d.ID] = fuel.Charge{Value: d.FuelValue, Residue: d.FuelResidue}
		}
	}
	return t
}

// ToolTable derives base excavation ticks from tool definitions.
func (c *Catalogs) ToolTable() mining.ToolTable {
	t := mining.ToolTable{}
	for _, d := range c.Items.Defs {
		if d.Kind == "TOOL" && d.ToolTicks > 0 {
			t[d.ID] = d.ToolTicks
		}
	}
	return t
}

// BlockID returns the palette id for a block, or false if unknown.
func (c *Catalogs) BlockID(id string) (uint16, bool) {
	v, ok := c.Blocks.Index[id]
	return v, ok
}

func (c *Catalogs) BlockName(v uint16) string {
	if int(v) >= len(c.Blocks.Palette) {
		return ""
	}
	return c.Blocks.Palette[v]
}
