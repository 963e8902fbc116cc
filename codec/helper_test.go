package codec_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/reactorhttp/codec"
)

var _ = Describe("Stream helpers", func() {
	It("round-trips a payload through compress then decompress", func() {
		c, err := codec.NewStreamCompressor(codec.Gzip)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Write([]byte("streamed response body"))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Close()).To(Succeed())

		compressed, err := io.ReadAll(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(compressed).NotTo(BeEmpty())

		d, err := codec.NewStreamDecompressor(codec.Gzip)
		Expect(err).NotTo(HaveOccurred())
		_, err = d.Write(compressed)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Close()).To(Succeed())

		plain, err := io.ReadAll(d)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(plain)).To(Equal("streamed response body"))
	})

	It("chunks writes larger than chunkSize without losing data", func() {
		big := make([]byte, 5000)
		for i := range big {
			big[i] = byte(i % 251)
		}

		c, err := codec.NewStreamCompressor(codec.Deflate)
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Write(big)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Close()).To(Succeed())

		compressed, _ := io.ReadAll(c)

		d, err := codec.NewStreamDecompressor(codec.Deflate)
		Expect(err).NotTo(HaveOccurred())
		_, _ = d.Write(compressed)
		Expect(d.Close()).To(Succeed())

		plain, _ := io.ReadAll(d)
		Expect(plain).To(Equal(big))
	})
})
