// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package metric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestClientMetric(t *testing.T) {
	t.Run("With a noop provider", func(t *testing.T) {
		meter := Meter(noop.NewMeterProvider())
		instruments, err := NewClientMetric(meter, "client")
		require.NoError(t, err)
		require.NotNil(t, instruments)
		require.NoError(t, instruments.ObservePending(func() int64 { return 3 }))

		ctx := context.Background()
		instruments.RecordCall(ctx, "CalcService", "Add", OutcomeSuccess, time.Millisecond)
		instruments.RecordCall(ctx, "CalcService", "Add", OutcomeTimeout, time.Second)
		instruments.RecordDiscarded(ctx)
		assert.NoError(t, instruments.Close())
		assert.NoError(t, instruments.Close())
	})
	t.Run("With the global provider", func(t *testing.T) {
		meter := Meter(nil)
		require.NotNil(t, meter)
		instruments, err := NewClientMetric(meter, "client")
		require.NoError(t, err)
		assert.NoError(t, instruments.Close())
	})
	t.Run("With close on a partially built metric", func(t *testing.T) {
		assert.NoError(t, new(ClientMetric).Close())
	})
}

func TestClientMetricCollection(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	instruments, err := NewClientMetric(Meter(provider), "client")
	require.NoError(t, err)
	require.NoError(t, instruments.ObservePending(func() int64 { return 7 }))

	ctx := context.Background()
	instruments.RecordCall(ctx, "CalcService", "Add", OutcomeSuccess, 2*time.Millisecond)
	instruments.RecordCall(ctx, "CalcService", "Add", OutcomeSuccess, 4*time.Millisecond)
	instruments.RecordDiscarded(ctx)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &data))
	require.Len(t, data.ScopeMetrics, 1)

	collected := make(map[string]metricdata.Aggregation)
	for _, m := range data.ScopeMetrics[0].Metrics {
		collected[m.Name] = m.Data
	}

	calls, ok := collected["rpc.client.calls"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, calls.DataPoints, 1)
	assert.EqualValues(t, 2, calls.DataPoints[0].Value)

	discarded, ok := collected["rpc.client.discarded"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, discarded.DataPoints, 1)
	assert.EqualValues(t, 1, discarded.DataPoints[0].Value)

	pending, ok := collected["rpc.client.pending"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, pending.DataPoints, 1)
	assert.EqualValues(t, 7, pending.DataPoints[0].Value)

	duration, ok := collected["rpc.client.duration"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.EqualValues(t, 2, duration.DataPoints[0].Count)

	// the gauge is no longer observed once closed
	require.NoError(t, instruments.Close())
	data = metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(ctx, &data))
	for _, m := range data.ScopeMetrics[0].Metrics {
		if m.Name == "rpc.client.pending" {
			gauge := m.Data.(metricdata.Gauge[int64])
			assert.Empty(t, gauge.DataPoints)
		}
	}
}
