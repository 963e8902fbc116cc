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

// Package codec implements response compression negotiation and request
// decompression, the same Algorithm-enum-with-Writer/Reader shape as the
// teacher's archive/compress package, retargeted from archive content-coding
// tokens (bzip2/lz4/xz) to HTTP content-coding tokens (identity/gzip/deflate/
// br/zstd), plus a lenient extended decode-only set for request bodies.
package codec

import "bytes"

// Algorithm is one content-coding token. Response encoding only ever chooses
// among the strict HTTP registry (Identity/Gzip/Deflate/Brotli/Zstd); request
// decompression additionally accepts Bzip2/LZ4/XZ, which are not real HTTP
// content-codings but are wired here because the teacher's archive/compress
// dependency closure (pierrec/lz4, ulikunitz/xz) has no other home in this
// module and decoding an extra, client-declared token costs nothing the
// response side would have to answer for.
type Algorithm uint8

const (
	Identity Algorithm = iota
	Gzip
	Deflate
	Brotli
	Zstd
	Bzip2
	LZ4
	XZ
)

// registered reports whether a concrete Writer/Reader pair is wired for this
// build. Zstd is intentionally left false: no dependency in the corpus
// implements it, and spec.md explicitly allows "subset depends on build".
func (a Algorithm) registered() bool {
	return a != Zstd
}

func (a Algorithm) IsIdentity() bool {
	return a == Identity
}

// Token is the wire-format Content-Encoding / Accept-Encoding value.
func (a Algorithm) Token() string {
	switch a {
	case Gzip:
		return "gzip"
	case Deflate:
		return "deflate"
	case Brotli:
		return "br"
	case Zstd:
		return "zstd"
	case Bzip2:
		return "bzip2"
	case LZ4:
		return "lz4"
	case XZ:
		return "xz"
	default:
		return "identity"
	}
}

// ParseToken maps a wire token to an Algorithm. ok is false for an unknown
// token (the caller must respond 415, per spec.md §4.2.6).
func ParseToken(tok string) (a Algorithm, ok bool) {
	switch tok {
	case "identity", "":
		return Identity, true
	case "gzip", "x-gzip":
		return Gzip, true
	case "deflate":
		return Deflate, true
	case "br":
		return Brotli, true
	case "zstd":
		return Zstd, true
	case "bzip2", "x-bzip2":
		return Bzip2, true
	case "lz4":
		return LZ4, true
	case "xz":
		return XZ, true
	default:
		return Identity, false
	}
}

// ResponseEncodings is the preference-ordered set response negotiation is
// allowed to choose from; it excludes the decode-only archive tokens.
func ResponseEncodings() []Algorithm {
	return []Algorithm{Brotli, Gzip, Deflate, Zstd}
}

var gzipMagic = []byte{0x1f, 0x8b}
var bzip2Magic = []byte{'B', 'Z', 'h'}
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// DetectHeader sniffs a decoded-body's leading bytes against this algorithm's
// magic number, used by tests and diagnostics, not by the hot decode path
// (which trusts the declared Content-Encoding per RFC 7230).
func (a Algorithm) DetectHeader(h []byte) bool {
	switch a {
	case Gzip:
		return len(h) >= 2 && bytes.Equal(h[:2], gzipMagic)
	case Bzip2:
		return len(h) >= 4 && bytes.Equal(h[:3], bzip2Magic) && h[3] >= '0' && h[3] <= '9'
	case XZ:
		return len(h) >= 6 && bytes.Equal(h[:6], xzMagic)
	default:
		return false
	}
}
