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

package codec

import (
	"compress/bzip2"
	"compress/flate"
	"compress/gzip"
	"errors"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/sabouaram/reactorhttp/ioutils/nopwritecloser"
)

var errNotRegistered = errors.New("codec: algorithm not registered in this build")

// Reader wraps r with a decoder for this algorithm.
func (a Algorithm) Reader(r io.Reader) (io.ReadCloser, error) {
	switch a {
	case Gzip:
		return gzip.NewReader(r)
	case Deflate:
		return flate.NewReader(r), nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case Bzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case XZ:
		c, e := xz.NewReader(r)
		if e != nil {
			return nil, e
		}
		return io.NopCloser(c), nil
	case Zstd:
		return nil, errNotRegistered
	default:
		return io.NopCloser(r), nil
	}
}

// Writer wraps w with an encoder for this algorithm. Only used for response
// encoding, so only the strict HTTP registry needs to be reachable here; the
// archive-only tokens (Bzip2/LZ4/XZ) never appear on the response side.
func (a Algorithm) Writer(w io.Writer) (io.WriteCloser, error) {
	switch a {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Deflate:
		return flate.NewWriter(w, flate.DefaultCompression)
	case Brotli:
		return brotli.NewWriter(w), nil
	case Zstd:
		return nil, errNotRegistered
	default:
		return nopwritecloser.New(w), nil
	}
}
