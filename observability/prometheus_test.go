package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := NewPrometheusObserver(reg, "test")
	require.NoError(t, err)

	o.OnBufferSend(0, 5)
	o.OnBufferSend(0, 3)
	o.OnBufferSend(1, 2)
	o.OnBufferReceive(0, 2*time.Millisecond, nil)
	o.OnBufferReceive(1, time.Millisecond, errors.New("device lost"))
	o.OnRetrievalBegin(2)
	o.OnSaturation()
	o.OnUnpaired()

	assert.InDelta(t, 2, testutil.ToFloat64(o.sends.WithLabelValues("0")), 0)
	assert.InDelta(t, 8, testutil.ToFloat64(o.searches.WithLabelValues("0")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(o.searches.WithLabelValues("1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.receiveFails.WithLabelValues("1")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.retrievals), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.saturations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(o.unpaired), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(o.receiveWait))

	// Registering twice on the same registry fails.
	_, err = NewPrometheusObserver(reg, "test")
	require.Error(t, err)
}
