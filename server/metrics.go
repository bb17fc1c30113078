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

package server

import "github.com/prometheus/client_golang/prometheus"

// Stats holds the server's Prometheus collectors, grounded on the
// counters/gauges a production reverse proxy in front of this server would
// scrape (connection churn and liveness), analogous in spirit to the
// teacher's httpserver monitor/health-check surface but expressed as
// metrics rather than a polled health endpoint.
type Stats struct {
	ConnsAccepted prometheus.Counter
	ConnsActive   prometheus.Gauge
	ConnsErrored  prometheus.Counter
	TLSHandshakes *prometheus.CounterVec
}

// NewStats registers a fresh set of collectors on reg (typically
// prometheus.NewRegistry(), not the global DefaultRegisterer, so multiple
// servers in one process don't collide).
func NewStats(reg prometheus.Registerer) *Stats {
	s := &Stats{
		ConnsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_httpd_connections_accepted_total",
			Help: "Total TCP connections accepted.",
		}),
		ConnsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reactor_httpd_connections_active",
			Help: "Currently open connections.",
		}),
		ConnsErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reactor_httpd_connections_errored_total",
			Help: "Connections that ended via the error callback rather than a clean close.",
		}),
		TLSHandshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reactor_httpd_tls_handshakes_total",
			Help: "TLS handshakes by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(s.ConnsAccepted, s.ConnsActive, s.ConnsErrored, s.TLSHandshakes)
	return s
}
