package sim

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/grab/internal/core/spatial"
	"github.com/zeusync/grab/internal/core/systems/physics"
)

// maxCellsPerCollider bounds how many cells one collider is inserted into; anything
// larger goes into the always-checked list.
const maxCellsPerCollider = 64

// spatialHash buckets colliders by the grid cells their bounds cover. Cell coordinates
// are hashed with xxhash; a hash collision only adds candidates, never loses one.
type spatialHash struct {
	cellSize float64
	cells    map[uint64][]*Collider
	large    []*Collider
}

func newSpatialHash(cellSize float64) *spatialHash {
	return &spatialHash{cellSize: cellSize, cells: make(map[uint64][]*Collider)}
}

func (h *spatialHash) reset() {
	clear(h.cells)
	h.large = h.large[:0]
}

func (h *spatialHash) cellOf(p spatial.Vec3) [3]int64 {
	return [3]int64{
		int64(math.Floor(p[0] / h.cellSize)),
		int64(math.Floor(p[1] / h.cellSize)),
		int64(math.Floor(p[2] / h.cellSize)),
	}
}

func cellKey(c [3]int64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(c[0]))
	binary.LittleEndian.PutUint64(buf[8:], uint64(c[1]))
	binary.LittleEndian.PutUint64(buf[16:], uint64(c[2]))
	return xxhash.Sum64(buf[:])
}

func cellSpan(lo, hi [3]int64) int64 {
	return (hi[0] - lo[0] + 1) * (hi[1] - lo[1] + 1) * (hi[2] - lo[2] + 1)
}

func (h *spatialHash) insert(c *Collider) {
	b := c.Bounds()
	lo, hi := h.cellOf(b.Min()), h.cellOf(b.Max())
	if span := cellSpan(lo, hi); span <= 0 || span > maxCellsPerCollider {
		h.large = append(h.large, c)
		return
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				k := cellKey([3]int64{x, y, z})
				h.cells[k] = append(h.cells[k], c)
			}
		}
	}
}

// candidates returns each collider whose cells touch the query bounds, once.
func (h *spatialHash) candidates(q physics.Bounds) []*Collider {
	seen := make(map[*Collider]struct{})
	out := make([]*Collider, 0, len(h.large))
	add := func(c *Collider) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, c := range h.large {
		add(c)
	}
	lo, hi := h.cellOf(q.Min()), h.cellOf(q.Max())
	if cellSpan(lo, hi) > maxCellsPerCollider*8 {
		for _, list := range h.cells {
			for _, c := range list {
				add(c)
			}
		}
		return out
	}
	for x := lo[0]; x <= hi[0]; x++ {
		for y := lo[1]; y <= hi[1]; y++ {
			for z := lo[2]; z <= hi[2]; z++ {
				for _, c := range h.cells[cellKey([3]int64{x, y, z})] {
					add(c)
				}
			}
		}
	}
	return out
}
