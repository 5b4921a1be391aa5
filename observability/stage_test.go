package observability

import (
	"testing"

	"github.com/hupe1980/rpstage"
	"github.com/hupe1980/rpstage/device"
	"github.com/hupe1980/rpstage/fmindex"
	"github.com/hupe1980/rpstage/search"
	"github.com/hupe1980/rpstage/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver_Stage(t *testing.T) {
	rng := testutil.NewRNG(3)
	ref := rng.Reference(2000)
	idx, err := fmindex.Build(t.Context(), []fmindex.Sequence{{Name: "chr1", Seq: ref}})
	require.NoError(t, err)
	emu, err := device.NewEmulator(idx, device.Config{
		NumBuffers: 2,
		Capacity:   device.Capacity{Queries: 3, Bases: 600, Regions: 60},
	})
	require.NoError(t, err)
	defer func() { _ = emu.Close() }()

	o, err := NewPrometheusObserver(prometheus.NewRegistry(), "")
	require.NoError(t, err)

	cache := search.NewCache(nil)
	st, err := rpstage.NewStage(emu, 0, 2, rpstage.Adaptive(rpstage.DefaultAdaptiveConfig()), rpstage.WithMetricsObserver(o))
	require.NoError(t, err)
	defer func() { _ = st.Close(cache) }()

	for _, r := range rng.SampleReads(ref, 5, 60, 0) {
		s := cache.Alloc()
		s.Prepare(r.Key, 0)
		require.True(t, st.SubmitSingle(s))
	}
	for {
		_, ok, err := st.RetrieveSingle(t.Context())
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	assert.InDelta(t, 3, promtest.ToFloat64(o.searches.WithLabelValues("0")), 0)
	assert.InDelta(t, 2, promtest.ToFloat64(o.searches.WithLabelValues("1")), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(o.retrievals), 0)
	assert.Equal(t, 2, promtest.CollectAndCount(o.receiveWait))
}
