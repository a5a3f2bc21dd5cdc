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

// Package metric holds the OpenTelemetry instruments recorded by the actor.
//
// Instruments:
//   - rpc.client.calls        (Int64Counter) attributes: rpc.service, rpc.method, rpc.outcome
//   - rpc.client.duration     (Float64Histogram, unit: ms)
//   - rpc.client.discarded    (Int64Counter) responses without a pending call
//   - rpc.client.pending      (Int64ObservableGauge) pending calls of the actor
package metric

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/blueteethyl1986/Redola"

// Outcome labels the result of a call.
type Outcome string

const (
	// OutcomeSuccess is recorded when a response payload was received
	OutcomeSuccess Outcome = "success"
	// OutcomeFault is recorded when the peer answered with a fault
	OutcomeFault Outcome = "fault"
	// OutcomeTimeout is recorded when the call timed out
	OutcomeTimeout Outcome = "timeout"
	// OutcomeCanceled is recorded when the caller context was canceled
	OutcomeCanceled Outcome = "canceled"
	// OutcomeError is recorded for any other failure
	OutcomeError Outcome = "error"
)

// Meter returns the meter of the given provider, falling back to the global one.
func Meter(provider metric.MeterProvider) metric.Meter {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	return provider.Meter(instrumentationName)
}

// ClientMetric groups the instruments of one actor.
type ClientMetric struct {
	meter        metric.Meter
	actor        attribute.KeyValue
	calls        metric.Int64Counter
	duration     metric.Float64Histogram
	discarded    metric.Int64Counter
	pending      metric.Int64ObservableGauge
	registration metric.Registration
}

// NewClientMetric creates the instruments of the named actor.
func NewClientMetric(meter metric.Meter, actorName string) (*ClientMetric, error) {
	instruments := &ClientMetric{meter: meter, actor: attribute.String("rpc.actor", actorName)}
	var err error

	if instruments.calls, err = meter.Int64Counter(
		"rpc.client.calls",
		metric.WithDescription("Total number of calls issued by the actor"),
	); err != nil {
		return nil, err
	}

	if instruments.duration, err = meter.Float64Histogram(
		"rpc.client.duration",
		metric.WithDescription("Round trip duration of calls"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if instruments.discarded, err = meter.Int64Counter(
		"rpc.client.discarded",
		metric.WithDescription("Total number of responses discarded because no call was pending"),
	); err != nil {
		return nil, err
	}

	if instruments.pending, err = meter.Int64ObservableGauge(
		"rpc.client.pending",
		metric.WithDescription("Number of calls waiting for a response"),
	); err != nil {
		return nil, err
	}

	return instruments, nil
}

// ObservePending registers the pending gauge callback. pending is invoked
// on every collection until Close is called. It is not safe for concurrent use.
func (x *ClientMetric) ObservePending(pending func() int64) error {
	if x.registration != nil {
		return nil
	}

	registration, err := x.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(x.pending, pending(), metric.WithAttributes(x.actor))
		return nil
	}, x.pending)
	if err != nil {
		return err
	}
	x.registration = registration
	return nil
}

// RecordCall records the outcome and duration of a call.
func (x *ClientMetric) RecordCall(ctx context.Context, service, method string, outcome Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		x.actor,
		attribute.String("rpc.service", service),
		attribute.String("rpc.method", method),
		attribute.String("rpc.outcome", string(outcome)),
	)
	x.calls.Add(ctx, 1, attrs)
	x.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

// RecordDiscarded records a response that matched no pending call.
func (x *ClientMetric) RecordDiscarded(ctx context.Context) {
	x.discarded.Add(ctx, 1, metric.WithAttributes(x.actor))
}

// Close unregisters the pending gauge callback.
func (x *ClientMetric) Close() error {
	if x.registration == nil {
		return nil
	}
	err := x.registration.Unregister()
	x.registration = nil
	return err
}
