package device

import (
	"fmt"
	"slices"
)

// MaxSeedLength is the longest seed a static buffer entry can hold.
const MaxSeedLength = 64

const seedHint = 24

type staticSeed struct {
	keyOff int
	keyLen int
}

// staticBuffer is the emulator's StaticBuffer.
type staticBuffer struct {
	*core
	params StaticParams

	keys  []byte
	seeds []staticSeed

	intervals [][2]uint64
	computed  bool
}

func newStaticBuffer(c *core, p StaticParams) *staticBuffer {
	return &staticBuffer{
		core:   c,
		params: p,
		keys:   make([]byte, 0, c.cap.Regions*seedHint),
		seeds:  make([]staticSeed, 0, c.cap.Regions),
	}
}

// MaxQueries is the seed capacity; each request contributes one seed per
// static partition.
func (b *staticBuffer) MaxQueries() int { return b.cap.Regions }

func (b *staticBuffer) FitsInBuffer(seeds int) bool {
	return len(b.seeds)+seeds <= b.cap.Regions
}

func (b *staticBuffer) AddSeed(key []byte) (int, error) {
	if err := b.busy(); err != nil {
		return 0, err
	}
	if !b.FitsInBuffer(1) || len(key) > MaxSeedLength {
		return 0, fmt.Errorf("%w: seed of %d bases on slot %d", ErrCapacity, len(key), b.slot)
	}
	b.seeds = append(b.seeds, staticSeed{keyOff: len(b.keys), keyLen: len(key)})
	b.keys = append(b.keys, key...)
	return len(b.seeds) - 1, nil
}

func (b *staticBuffer) Len() int { return len(b.seeds) }

func (b *staticBuffer) Truncate(n int) {
	if b.busy() != nil || n < 0 || n >= len(b.seeds) {
		return
	}
	b.keys = b.keys[:b.seeds[n].keyOff]
	b.seeds = b.seeds[:n]
}

func (b *staticBuffer) Send() {
	keys := slices.Clone(b.keys)
	seeds := slices.Clone(b.seeds)
	intervals := make([][2]uint64, len(seeds))

	k := kernel{inBytes: len(keys) + len(seeds)*seedBytes}
	if b.params.Enabled {
		idx := b.e.index
		k.outBytes = len(seeds) * 16
		k.run = func() {
			for i, s := range seeds {
				lo, hi := idx.Count(keys[s.keyOff : s.keyOff+s.keyLen])
				intervals[i] = [2]uint64{lo, hi}
			}
		}
	}
	b.intervals = intervals
	b.computed = b.params.Enabled
	b.launch(k)
}

func (b *staticBuffer) Computed() bool { return b.computed }

func (b *staticBuffer) Interval(seed int) (lo, hi uint64) {
	if seed < 0 || seed >= len(b.intervals) {
		return 0, 0
	}
	return b.intervals[seed][0], b.intervals[seed][1]
}

func (b *staticBuffer) Clear() {
	b.clear()
	b.keys = b.keys[:0]
	b.seeds = b.seeds[:0]
	b.intervals = nil
	b.computed = false
}

func (b *staticBuffer) Close() error {
	err := b.close()
	b.keys, b.seeds, b.intervals = nil, nil, nil
	return err
}
