package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"voxelquarry.ai/internal/sim/item"
	"voxelquarry.ai/internal/sim/mathx"
)

// stateDigest hashes everything that influences future ticks. Two worlds
// that step the same commands from the same snapshot agree on it.
func (w *World) stateDigest(tick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	writeU64(h, tmp[:], tick)
	writeI64(h, tmp[:], w.cfg.Seed)
	writeI64(h, tmp[:], int64(w.cfg.BottomY))
	writeI64(h, tmp[:], int64(w.cfg.Height))

	for _, k := range w.chunks.LoadedChunkKeys() {
		ch := w.chunks.Chunks[k]
		writeI64(h, tmp[:], int64(k.CX))
		writeI64(h, tmp[:], int64(k.CZ))
		d := ch.Digest()
		h.Write(d[:])
	}

	for _, pos := range w.sortedDevicePositions() {
		v := w.devices[pos].Export()
		writePos(h, tmp[:], pos)
		for _, n := range []int{
			v.BurnBudget, v.LastChargeSize, v.MiningProgress, v.TicksPerUnit,
			v.Depth, v.RingIndex, v.AreaUpgrades, v.SpeedUpgrades, v.FilterMode,
		} {
			writeI64(h, tmp[:], int64(n))
		}
		writeBool(h, v.ReservationDisabled)
		writeBool(h, v.Reserved)
		writeI64(h, tmp[:], int64(len(v.Items)))
		for _, s := range v.Items {
			writeI64(h, tmp[:], int64(s.Slot))
			writeStack(h, tmp[:], item.Stack{ID: s.Item.ID, Count: s.Item.Count, Damage: s.Item.Damage, Enchantments: s.Item.Enchantments})
		}
	}

	powered := sortedKeys(w.powered)
	writeI64(h, tmp[:], int64(len(powered)))
	for _, p := range powered {
		writePos(h, tmp[:], p)
	}

	ground := sortedKeys(w.ground)
	writeI64(h, tmp[:], int64(len(ground)))
	for _, p := range ground {
		writePos(h, tmp[:], p)
		stacks := w.ground[p]
		writeI64(h, tmp[:], int64(len(stacks)))
		for _, st := range stacks {
			writeStack(h, tmp[:], st)
		}
	}

	forced := make([]mathx.ChunkKey, 0, len(w.forced))
	for k := range w.forced {
		forced = append(forced, k)
	}
	sort.Slice(forced, func(i, j int) bool {
		if forced[i].CX != forced[j].CX {
			return forced[i].CX < forced[j].CX
		}
		return forced[i].CZ < forced[j].CZ
	})
	for _, k := range forced {
		writeI64(h, tmp[:], int64(k.CX))
		writeI64(h, tmp[:], int64(k.CZ))
		writeI64(h, tmp[:], int64(w.forced[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedKeys[V any](m map[mathx.Vec3i]V) []mathx.Vec3i {
	out := make([]mathx.Vec3i, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func writeU64(h hash.Hash, tmp []byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp, v)
	h.Write(tmp[:8])
}

func writeI64(h hash.Hash, tmp []byte, v int64) { writeU64(h, tmp, uint64(v)) }

func writeBool(h hash.Hash, v bool) {
	if v {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}

func writeString(h hash.Hash, tmp []byte, s string) {
	writeU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func writePos(h hash.Hash, tmp []byte, p mathx.Vec3i) {
	writeI64(h, tmp, int64(p.X))
	writeI64(h, tmp, int64(p.Y))
	writeI64(h, tmp, int64(p.Z))
}

func writeStack(h hash.Hash, tmp []byte, st item.Stack) {
	writeString(h, tmp, st.ID)
	writeI64(h, tmp, int64(st.Count))
	writeI64(h, tmp, int64(st.Damage))
	keys := st.EnchantmentKeys()
	writeI64(h, tmp, int64(len(keys)))
	for _, k := range keys {
		writeString(h, tmp, k)
		writeI64(h, tmp, int64(st.Enchantments[k]))
	}
}
