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

// Package config declares the server's viper-bound, validator-checked
// configuration model: listen address/port and an optional TLS overlay.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Server is the top-level configuration: where to listen, connection and
// buffer limits, and, optionally, how to terminate TLS.
type Server struct {
	Listen Listen `mapstructure:"listen" validate:"required"`
	TLS    TLS    `mapstructure:"tls"`
	Log    Log    `mapstructure:"log"`

	// MaxConnections caps concurrently accepted connections; the accept
	// loop stops draining the listening socket once it is reached and
	// resumes once a tracked connection closes. 0 means unbounded.
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,min=1"`

	// BufferSize is the fixed per-connection read/write buffer capacity
	// passed to conn.New.
	BufferSize int `mapstructure:"buffer_size" validate:"omitempty,min=1024"`

	// IdleTimeout closes a connection that has gone this long without a
	// read or write. 0 disables idle timeouts.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// Listen is the plain socket binding.
type Listen struct {
	Addr string `mapstructure:"addr"`
	Port int    `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// TLS configures the optional TLS overlay. Enable gates everything else;
// when false the remaining fields are ignored.
type TLS struct {
	Enable        bool     `mapstructure:"enable"`
	CertFile      string   `mapstructure:"cert_file" validate:"required_if=Enable true"`
	KeyFile       string   `mapstructure:"key_file" validate:"required_if=Enable true"`
	ClientCAFiles []string `mapstructure:"client_ca_files"`

	// ClientAuth names the mutual-TLS policy: none, request,
	// require_any, verify_if_given or require_and_verify. Left empty it
	// defaults to verify_if_given when ClientCAFiles is non-empty,
	// otherwise none.
	ClientAuth string `mapstructure:"client_auth" validate:"omitempty,oneof=none request require_any verify_if_given require_and_verify"`

	// MinVersion is the lowest TLS version to accept: one of 1.0, 1.1,
	// 1.2, 1.3. Left empty it defaults to 1.2.
	MinVersion string `mapstructure:"min_version" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
}

// Log configures the logging facade's minimum level and output format.
type Log struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=verbose debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

var validate = validator.New()

// Load unmarshals v into a Server and validates it, applying the defaults
// registered via SetDefaults beforehand.
func Load(v *viper.Viper) (*Server, error) {
	SetDefaults(v)

	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// SetDefaults registers this package's defaults on v before binding flags
// or environment variables, so either can still override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("listen.addr", "0.0.0.0")
	v.SetDefault("listen.port", 8080)
	v.SetDefault("max_connections", 4096)
	v.SetDefault("buffer_size", 64*1024)
	v.SetDefault("idle_timeout", 60*time.Second)
	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.min_version", "1.2")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}
