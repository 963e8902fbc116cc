/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package promadapter implements telemetry.Hook on top of
// github.com/prometheus/client_golang, the teacher's metrics backend
// (nabbar-golib/prometheus), without pulling in that package's gin
// middleware or exclusion-path registration machinery the reactor has no
// use for.
package promadapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/reactorhttp/telemetry"
)

// Adapter is a telemetry.Hook backed by a small, fixed set of Prometheus
// collectors registered against the given Registerer.
type Adapter struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed    prometheus.Counter
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	bytesIn              prometheus.Counter
	bytesOut             prometheus.Counter
	rejections           *prometheus.CounterVec
	compressionRatio     *prometheus.HistogramVec
}

// New registers the reactor's metric set against reg and returns the
// resulting Adapter.
func New(reg prometheus.Registerer) *Adapter {
	a := &Adapter{
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_connections_accepted_total",
			Help: "Total TCP connections accepted by the reactor.",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_connections_closed_total",
			Help: "Total TCP connections closed by the reactor.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reactor_requests_total",
			Help: "Total HTTP requests completed, labeled by status class.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reactor_request_duration_seconds",
			Help:    "Request handling duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_request_bytes_total",
			Help: "Total request body bytes read.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_response_bytes_total",
			Help: "Total response body bytes written.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reactor_requests_rejected_total",
			Help: "Total requests rejected before completion, labeled by reason.",
		}, []string{"reason"}),
		compressionRatio: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reactor_compression_ratio",
			Help:    "compressed_bytes / original_bytes per compressed response.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}, []string{"algorithm"}),
	}

	reg.MustRegister(
		a.connectionsAccepted, a.connectionsClosed,
		a.requestsTotal, a.requestDuration,
		a.bytesIn, a.bytesOut,
		a.rejections, a.compressionRatio,
	)

	return a
}

func (a *Adapter) ConnectionAccepted() { a.connectionsAccepted.Inc() }
func (a *Adapter) ConnectionClosed()   { a.connectionsClosed.Inc() }

func (a *Adapter) RequestCompleted(status int, duration time.Duration, bytesIn, bytesOut int64) {
	class := statusClass(status)
	a.requestsTotal.WithLabelValues(class).Inc()
	a.requestDuration.WithLabelValues(class).Observe(duration.Seconds())
	a.bytesIn.Add(float64(bytesIn))
	a.bytesOut.Add(float64(bytesOut))
}

func (a *Adapter) RequestRejected(reason string) {
	a.rejections.WithLabelValues(reason).Inc()
}

func (a *Adapter) CompressionApplied(algorithm string, originalBytes, compressedBytes int) {
	if originalBytes <= 0 {
		return
	}
	a.compressionRatio.WithLabelValues(algorithm).Observe(float64(compressedBytes) / float64(originalBytes))
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

var _ telemetry.Hook = (*Adapter)(nil)
