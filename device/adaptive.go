package device

import (
	"fmt"
	"slices"
)

type adaptiveQuery struct {
	keyOff     int
	keyLen     int
	maxRegions int
}

// adaptiveBuffer is the emulator's AdaptiveBuffer.
type adaptiveBuffer struct {
	*core
	params AdaptiveParams

	// host side
	keys    []byte
	queries []adaptiveQuery
	regions int

	// device results, written by the kernel before done is closed
	results  [][]Region
	computed bool
}

func newAdaptiveBuffer(c *core, p AdaptiveParams) *adaptiveBuffer {
	return &adaptiveBuffer{
		core:    c,
		params:  p,
		keys:    make([]byte, 0, c.cap.Bases),
		queries: make([]adaptiveQuery, 0, c.cap.Queries),
	}
}

func (b *adaptiveBuffer) MaxQueries() int { return b.cap.Queries }

func (b *adaptiveBuffer) FitsInBuffer(queries, bases, regions int) bool {
	return len(b.queries)+queries <= b.cap.Queries &&
		len(b.keys)+bases <= b.cap.Bases &&
		b.regions+regions <= b.cap.Regions
}

func (b *adaptiveBuffer) AddQuery(key []byte, maxRegions int) (int, error) {
	if err := b.busy(); err != nil {
		return 0, err
	}
	if maxRegions < 0 {
		maxRegions = 0
	}
	if !b.FitsInBuffer(1, len(key), maxRegions) {
		return 0, fmt.Errorf("%w: query of %d bases, %d regions on slot %d", ErrCapacity, len(key), maxRegions, b.slot)
	}
	b.queries = append(b.queries, adaptiveQuery{keyOff: len(b.keys), keyLen: len(key), maxRegions: maxRegions})
	b.keys = append(b.keys, key...)
	b.regions += maxRegions
	return len(b.queries) - 1, nil
}

func (b *adaptiveBuffer) Len() int { return len(b.queries) }

func (b *adaptiveBuffer) Truncate(n int) {
	if b.busy() != nil || n < 0 || n >= len(b.queries) {
		return
	}
	for _, q := range b.queries[n:] {
		b.regions -= q.maxRegions
	}
	b.keys = b.keys[:b.queries[n].keyOff]
	b.queries = b.queries[:n]
}

func (b *adaptiveBuffer) Send() {
	keys := slices.Clone(b.keys)
	queries := slices.Clone(b.queries)
	results := make([][]Region, len(queries))
	b.results = nil
	b.computed = false

	k := kernel{inBytes: len(keys) + len(queries)*queryBytes}
	if b.params.Enabled {
		params := b.params
		idx := b.e.index
		k.outBytes = b.regions * regionBytes
		k.run = func() {
			for i, q := range queries {
				results[i] = profileAdaptive(make([]Region, 0, q.maxRegions), idx, keys[q.keyOff:q.keyOff+q.keyLen], q.maxRegions, params)
			}
		}
	}
	b.results = results
	b.computed = b.params.Enabled
	b.launch(k)
}

func (b *adaptiveBuffer) Computed() bool { return b.computed }

func (b *adaptiveBuffer) Regions(query int) []Region {
	if query < 0 || query >= len(b.results) {
		return nil
	}
	return b.results[query]
}

func (b *adaptiveBuffer) Clear() {
	b.clear()
	b.keys = b.keys[:0]
	b.queries = b.queries[:0]
	b.regions = 0
	b.results = nil
	b.computed = false
}

func (b *adaptiveBuffer) Close() error {
	err := b.close()
	b.keys, b.queries, b.results = nil, nil, nil
	return err
}
