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

package server_test

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/reactor-httpd/server"
)

var _ = Describe("Stats", func() {
	It("registers every collector on the given registerer", func() {
		reg := prometheus.NewRegistry()
		s := server.NewStats(reg)

		mfs, err := reg.Gather()
		Expect(err).NotTo(HaveOccurred())

		names := map[string]bool{}
		for _, mf := range mfs {
			names[mf.GetName()] = true
		}
		Expect(names).To(HaveKey("reactor_httpd_connections_accepted_total"))
		Expect(names).To(HaveKey("reactor_httpd_connections_active"))
		Expect(names).To(HaveKey("reactor_httpd_connections_errored_total"))
		Expect(names).To(HaveKey("reactor_httpd_tls_handshakes_total"))

		s.ConnsAccepted.Inc()
		s.ConnsActive.Inc()
		s.ConnsErrored.Inc()
		s.TLSHandshakes.WithLabelValues("error").Inc()

		Expect(testutil.ToFloat64(s.ConnsAccepted)).To(Equal(1.0))
		Expect(testutil.ToFloat64(s.ConnsActive)).To(Equal(1.0))
		Expect(testutil.ToFloat64(s.ConnsErrored)).To(Equal(1.0))
		Expect(testutil.ToFloat64(s.TLSHandshakes.WithLabelValues("error"))).To(Equal(1.0))
	})

	It("panics when registered twice on the same registerer", func() {
		reg := prometheus.NewRegistry()
		server.NewStats(reg)
		Expect(func() { server.NewStats(reg) }).To(Panic())
	})
})
