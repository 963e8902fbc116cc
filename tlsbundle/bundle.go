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

// Package tlsbundle narrows the teacher's certificates.TLSConfig surface
// down to a single method: resolving a *tls.Config for a given SNI server
// name. A Bundle is looked up by opaque identity
// (srvconfig.Immutable.TLSBundleID) rather than constructed inline, so
// certificate rotation can swap the pair backing an identity. The reactor
// only checks at Run that the configured identity resolves; it never calls
// TlsConfig and performs no TLS handshake.
package tlsbundle

import (
	"crypto/tls"
	"sync"

	"github.com/sabouaram/reactorhttp/rerrors"
)

const (
	ErrUnknownBundle rerrors.CodeError = iota + rerrors.MinPkgTLSBundle
	ErrNoCertificatePair
)

func init() {
	rerrors.RegisterIdFctMessage(ErrUnknownBundle, func(rerrors.CodeError) string { return "unknown tls bundle id" })
	rerrors.RegisterIdFctMessage(ErrNoCertificatePair, func(rerrors.CodeError) string { return "tls bundle has no certificate pair" })
}

// Bundle is an opaque TLS identity resolved per SNI server name, with an
// empty name giving the default certificate.
type Bundle interface {
	// TlsConfig returns a *tls.Config for the given SNI server name.
	// An empty serverName asks for the bundle's default identity.
	TlsConfig(serverName string) *tls.Config
}

// StaticBundle wraps a fixed certificate pair (its cas field is never set or
// read, so no CA pool is applied), mirroring the
// teacher's certificates.config.TLS method without the mutable
// cipher/curve/version builder surface the reactor doesn't expose.
type StaticBundle struct {
	mu   sync.RWMutex
	cert []tls.Certificate
	cas  *tls.Config
}

// NewStaticBundle builds a Bundle from an already-loaded certificate pair
// (grounded on certificates.config.AddCertificatePairFile, whose PEM
// parsing this package intentionally does not duplicate: the reactor
// receives already-parsed tls.Certificate values from its host
// application).
func NewStaticBundle(certs ...tls.Certificate) *StaticBundle {
	return &StaticBundle{cert: certs}
}

// Replace swaps the certificate pair atomically, the hot-reload path a
// watched certificate file change drives.
func (b *StaticBundle) Replace(certs ...tls.Certificate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cert = certs
}

func (b *StaticBundle) TlsConfig(serverName string) *tls.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &tls.Config{
		Certificates: b.cert,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}
}

// Registry resolves a Bundle by the opaque TLSBundleID carried in
// srvconfig.Immutable, so the reactor never constructs TLS configuration
// inline.
type Registry struct {
	mu      sync.RWMutex
	bundles map[string]Bundle
}

// NewRegistry returns an empty bundle registry.
func NewRegistry() *Registry {
	return &Registry{bundles: make(map[string]Bundle)}
}

// Register associates id with b, replacing any prior association.
func (r *Registry) Register(id string, b Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[id] = b
}

// Lookup resolves id to a Bundle, or ErrUnknownBundle.
func (r *Registry) Lookup(id string) (Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[id]
	if !ok {
		return nil, rerrors.New(ErrUnknownBundle, id)
	}
	return b, nil
}
