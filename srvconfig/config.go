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

// Package srvconfig holds the reactor's configuration data model: the
// immutable identity fields fixed at bind time versus the mutable tuning
// fields a running server accepts hot updates for (spec.md §3's
// "Configuration" entity). Field tags follow the teacher's
// httpserver.ServerConfig convention (mapstructure/json/yaml/toml plus
// go-playground/validator/v10 struct tags) so confload can decode and
// validate the same struct it posts as hot updates.
package srvconfig

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sabouaram/reactorhttp/codec"
	"github.com/sabouaram/reactorhttp/middleware"
)

// Immutable holds the fields fixed for the lifetime of a bound listener; a
// posted update touching these is a programming error, not a hot-reload.
type Immutable struct {
	Port        int    `mapstructure:"port" json:"port" yaml:"port" toml:"port" validate:"required,min=1,max=65535"`
	ReusePort   bool   `mapstructure:"reuse_port" json:"reuse_port" yaml:"reuse_port" toml:"reuse_port"`
	NbThreads   int    `mapstructure:"nb_threads" json:"nb_threads" yaml:"nb_threads" toml:"nb_threads" validate:"min=0"`
	TLSBundleID string `mapstructure:"tls_bundle_id" json:"tls_bundle_id" yaml:"tls_bundle_id" toml:"tls_bundle_id"`

	// BuiltinProbes registers the /livez, /readyz and /startupz routes
	// (spec.md §6.4) on the router at construction time.
	BuiltinProbes bool `mapstructure:"builtin_probes" json:"builtin_probes" yaml:"builtin_probes" toml:"builtin_probes"`
}

// Mutable holds every field a posted updater (§4.1 postConfigUpdate) is
// allowed to change while the reactor runs.
type Mutable struct {
	ReadHeaderTimeout   time.Duration `mapstructure:"read_header_timeout" json:"read_header_timeout" yaml:"read_header_timeout" toml:"read_header_timeout"`
	ReadBodyTimeout     time.Duration `mapstructure:"read_body_timeout" json:"read_body_timeout" yaml:"read_body_timeout" toml:"read_body_timeout"`
	KeepAliveTimeout    time.Duration `mapstructure:"keep_alive_timeout" json:"keep_alive_timeout" yaml:"keep_alive_timeout" toml:"keep_alive_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout" json:"tls_handshake_timeout" yaml:"tls_handshake_timeout" toml:"tls_handshake_timeout"`
	DrainDeadline       time.Duration `mapstructure:"drain_deadline" json:"drain_deadline" yaml:"drain_deadline" toml:"drain_deadline"`

	MaxHeaderBytes           int   `mapstructure:"max_header_bytes" json:"max_header_bytes" yaml:"max_header_bytes" toml:"max_header_bytes" validate:"min=0"`
	MaxBodyBytes             int64 `mapstructure:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes" validate:"min=0"`
	MaxRequestsPerConnection int   `mapstructure:"max_requests_per_connection" json:"max_requests_per_connection" yaml:"max_requests_per_connection" toml:"max_requests_per_connection" validate:"min=0"`
	MaxOutboundBufferBytes   int   `mapstructure:"max_outbound_buffer_bytes" json:"max_outbound_buffer_bytes" yaml:"max_outbound_buffer_bytes" toml:"max_outbound_buffer_bytes" validate:"min=0"`
	MaxPerEventReadBytes     int   `mapstructure:"max_per_event_read_bytes" json:"max_per_event_read_bytes" yaml:"max_per_event_read_bytes" toml:"max_per_event_read_bytes" validate:"min=0"`
	MaxAcceptPerCycle        int   `mapstructure:"max_accept_per_cycle" json:"max_accept_per_cycle" yaml:"max_accept_per_cycle" toml:"max_accept_per_cycle" validate:"min=0"`

	KeepAliveEnabled           bool `mapstructure:"keep_alive_enabled" json:"keep_alive_enabled" yaml:"keep_alive_enabled" toml:"keep_alive_enabled"`
	MergeUnknownRequestHeaders bool `mapstructure:"merge_unknown_request_headers" json:"merge_unknown_request_headers" yaml:"merge_unknown_request_headers" toml:"merge_unknown_request_headers"`

	Compression   codec.Config           `mapstructure:"compression" json:"compression" yaml:"compression" toml:"compression"`
	Decompression codec.DecompressConfig `mapstructure:"decompression" json:"decompression" yaml:"decompression" toml:"decompression"`

	GlobalResponseHeaders map[string]string `mapstructure:"global_response_headers" json:"global_response_headers" yaml:"global_response_headers" toml:"global_response_headers"`

	// CORS is nil when cross-origin requests are not handled specially;
	// set it to enable the preflight/actual algorithm in middleware/cors.go.
	CORS *middleware.CORSPolicy `mapstructure:"cors" json:"cors" yaml:"cors" toml:"cors"`
}

// Config is the full configuration snapshot a posted updater receives and
// returns; the reactor restores Immutable after every updater runs (spec.md
// §3: "enforces immutability by restoring shadowed fields after each posted
// updater runs").
type Config struct {
	Immutable
	Mutable
}

var validate = validator.New()

// Validate runs struct-tag validation (go-playground/validator/v10),
// matching the teacher's ServerConfig.Validate idiom.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// Updater mutates a Config snapshot and returns the result; Immutable fields
// in the return value are ignored by the reactor, which restores them from
// the pre-update snapshot regardless of what the updater sets.
type Updater func(Config) Config

// Apply runs fn over a copy of cur, then restores cur's Immutable fields
// onto the result, implementing spec.md §3's immutability-by-restoration
// rule without requiring every updater to behave itself.
func Apply(cur Config, fn Updater) Config {
	next := fn(cur)
	next.Immutable = cur.Immutable
	return next
}

// Default returns conservative defaults matching the teacher's
// ServerConfig zero-value-plus-validate-tag convention.
func Default() Config {
	return Config{
		Immutable: Immutable{
			Port:      8080,
			NbThreads: 1,
		},
		Mutable: Mutable{
			ReadHeaderTimeout:        10 * time.Second,
			ReadBodyTimeout:          30 * time.Second,
			KeepAliveTimeout:         60 * time.Second,
			TLSHandshakeTimeout:      10 * time.Second,
			DrainDeadline:            30 * time.Second,
			MaxHeaderBytes:           1 << 16,
			MaxBodyBytes:             10 << 20,
			MaxRequestsPerConnection: 1000,
			MaxOutboundBufferBytes:   4 << 20,
			MaxPerEventReadBytes:     64 << 10,
			MaxAcceptPerCycle:        64,
			KeepAliveEnabled:         true,
		},
	}
}
