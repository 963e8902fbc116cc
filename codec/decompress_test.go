package codec_test

import (
	"bytes"
	"compress/gzip"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/reactorhttp/codec"
)

func gzipBytes(s string) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	return buf.Bytes()
}

var _ = Describe("Decompress", func() {
	It("passes bytes through unchanged for identity", func() {
		rc, err := codec.Decompress(bytes.NewBufferString("hello"), "", 5, codec.DecompressConfig{})
		Expect(err).NotTo(HaveOccurred())
		out, _ := io.ReadAll(rc)
		Expect(string(out)).To(Equal("hello"))
	})

	It("decodes a single gzip stage", func() {
		compressed := gzipBytes("payload body")
		rc, err := codec.Decompress(bytes.NewReader(compressed), "gzip", int64(len(compressed)), codec.DecompressConfig{})
		Expect(err).NotTo(HaveOccurred())
		out, err := io.ReadAll(rc)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("payload body"))
	})

	It("aborts once the absolute cap is exceeded", func() {
		compressed := gzipBytes("a long enough payload to exceed a tiny cap")
		rc, err := codec.Decompress(bytes.NewReader(compressed), "gzip", int64(len(compressed)), codec.DecompressConfig{MaxDecompressedBytes: 4})
		Expect(err).NotTo(HaveOccurred())
		_, err = io.ReadAll(rc)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseContentEncoding", func() {
	It("drops identity tokens and preserves stacking order", func() {
		Expect(codec.ParseContentEncoding("gzip, identity, br")).To(Equal([]string{"gzip", "br"}))
	})
})
