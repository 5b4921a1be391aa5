package rpstage

import (
	"testing"

	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/fmindex"
	"github.com/hupe1980/rpstage/search"
	"github.com/hupe1980/rpstage/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	emu   *device.Emulator
	idx   *fmindex.Index
	ref   []byte
	rng   *testutil.RNG
	cache *search.Cache
}

func newFixture(t *testing.T, cfg device.Config) *fixture {
	t.Helper()
	rng := testutil.NewRNG(42)
	ref := rng.Reference(5000)
	idx, err := fmindex.Build(t.Context(), []fmindex.Sequence{{Name: "chr1", Seq: ref}})
	require.NoError(t, err)

	emu, err := device.NewEmulator(idx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = emu.Close() })

	return &fixture{t: t, emu: emu, idx: idx, ref: ref, rng: rng, cache: search.NewCache(nil)}
}

// smallBuffers returns a config whose buffers hold queries requests of up
// to a few hundred bases each.
func smallBuffers(numBuffers, queries int) device.Config {
	return device.Config{
		NumBuffers: numBuffers,
		Capacity:   device.Capacity{Queries: queries, Bases: queries * 200, Regions: queries * 20},
	}
}

func (f *fixture) stage(numBuffers int, mode ProfileMode, opts ...Option) *Stage {
	f.t.Helper()
	st, err := NewStage(f.emu, 0, numBuffers, mode, opts...)
	require.NoError(f.t, err)
	f.t.Cleanup(func() { _ = st.Close(f.cache) })
	return st
}

func (f *fixture) request(key []byte, tag string) *search.Search {
	s := f.cache.Alloc()
	s.Tag = tag
	s.Prepare(key, search.DefaultRegionLength)
	return s
}

// reads returns n requests over exact reference substrings of the given length.
func (f *fixture) reads(n, length int) []*search.Search {
	out := make([]*search.Search, n)
	for i, r := range f.rng.SampleReads(f.ref, n, length, 0) {
		out[i] = f.request(r.Key, "")
	}
	return out
}

func ids(searches []*search.Search) []uint64 {
	out := make([]uint64, len(searches))
	for i, s := range searches {
		out[i] = s.ID
	}
	return out
}

func drain(t *testing.T, st *Stage) []*search.Search {
	t.Helper()
	var out []*search.Search
	for {
		_, s, ok, err := st.RetrieveNext(t.Context())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, s)
	}
}
