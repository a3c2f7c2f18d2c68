package knockoff

import (
	"errors"
	"fmt"
)

// MaxUnitIndex bounds the per-unit seed offset. Seeds base+[0, MaxUnitIndex)
// belong to one batch; permutation batches are spaced MaxUnitIndex apart.
//
// Within a batch block, offsets [0, units) seed the (label, trial) fits,
// [units, units+trials) seed the knockoff draws and DrawSlot seeds the
// substitution draw of a permutation batch.
const MaxUnitIndex = 10000

// DrawSlot is the block offset reserved for a permutation batch's
// substitution draw. Fit and sampler seeds stay below it.
const DrawSlot = MaxUnitIndex - 1

// ErrUnitIndexRange is returned when a unit index would leave its seed block.
var ErrUnitIndexRange = errors.New("unit index out of range")

// UnitIndex returns the index of the (label, trial) unit.
func UnitIndex(label, trial, trials int) int {
	return label*trials + trial
}

// UnitSeed returns base + unit for 0 <= unit < MaxUnitIndex.
func UnitSeed(base int64, unit int) (int64, error) {
	if unit < 0 || unit >= MaxUnitIndex {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrUnitIndexRange, unit, MaxUnitIndex)
	}
	return base + int64(unit), nil
}

// BatchSeed returns the base seed of permutation batch p. Batch seeds never
// overlap the unit seeds of the real run or of any other batch.
func BatchSeed(base int64, batch int) int64 {
	return base + int64(batch+1)*MaxUnitIndex
}

// SamplerSeed returns the seed of the knockoff draw of a trial, placed after
// the units fit seeds of the batch.
func SamplerSeed(base int64, units, trial int) (int64, error) {
	i := units + trial
	if trial < 0 || i >= DrawSlot {
		return 0, fmt.Errorf("%w: sampler offset %d not in [%d,%d)", ErrUnitIndexRange, i, units, DrawSlot)
	}
	return base + int64(i), nil
}

// DrawSeed returns the seed of the substitution draw of permutation batch p.
// It lies in the batch's own block but outside its fit and sampler seeds.
func DrawSeed(base int64, batch int) int64 {
	return BatchSeed(base, batch) + DrawSlot
}
