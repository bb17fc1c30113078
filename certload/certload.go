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

// Package certload builds a *tls.Config from PEM-encoded certificate, key
// and client-CA files — the filesystem-based substitute for a JKS
// keystore/truststore pair.
package certload

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/nabbar/reactor-httpd/config"
)

// Build loads cfg's certificate material and returns a server-side
// *tls.Config ready to pass to tlsconn.Server. Returns nil, nil if TLS is
// disabled.
func Build(cfg config.TLS) (*tls.Config, error) {
	if !cfg.Enable {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("certload: load key pair: %w", err)
	}

	mv, err := minVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	tc := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   mv,
	}

	if len(cfg.ClientCAFiles) > 0 {
		pool := x509.NewCertPool()
		for _, f := range cfg.ClientCAFiles {
			pem, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("certload: read client CA %q: %w", f, err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("certload: no certificates found in %q", f)
			}
		}
		tc.ClientCAs = pool
	}

	ca, err := clientAuth(cfg.ClientAuth, len(cfg.ClientCAFiles) > 0)
	if err != nil {
		return nil, err
	}
	tc.ClientAuth = ca

	return tc, nil
}

// minVersion maps the config's named TLS version to its crypto/tls
// constant. An empty string (the field's zero value) means the config
// layer's own default wasn't applied, so it falls back to 1.2 here too.
func minVersion(s string) (uint16, error) {
	switch s {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.0":
		return tls.VersionTLS10, nil
	case "1.1":
		return tls.VersionTLS11, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("certload: unknown tls min_version %q", s)
	}
}

// clientAuth maps the config's named mutual-TLS policy to its
// crypto/tls.ClientAuthType. An empty string defaults to
// verify_if_given when client CA files were configured (the previous
// behavior of the boolean this field replaced), otherwise none.
func clientAuth(s string, hasClientCAs bool) (tls.ClientAuthType, error) {
	switch s {
	case "":
		if hasClientCAs {
			return tls.VerifyClientCertIfGiven, nil
		}
		return tls.NoClientCert, nil
	case "none":
		return tls.NoClientCert, nil
	case "request":
		return tls.RequestClientCert, nil
	case "require_any":
		return tls.RequireAnyClientCert, nil
	case "verify_if_given":
		return tls.VerifyClientCertIfGiven, nil
	case "require_and_verify":
		return tls.RequireAndVerifyClientCert, nil
	default:
		return 0, fmt.Errorf("certload: unknown tls client_auth %q", s)
	}
}
