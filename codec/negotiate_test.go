package codec_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/reactorhttp/codec"
)

var _ = Describe("Select", func() {
	cfg := &codec.Config{Preferred: codec.ResponseEncodings()}

	It("prefers brotli when the client accepts everything equally", func() {
		sel := codec.Select(cfg, "br, gzip, deflate")
		Expect(sel.NotAcceptable).To(BeFalse())
		Expect(sel.Algorithm).To(Equal(codec.Brotli))
	})

	It("skips a codec explicitly excluded with q=0", func() {
		sel := codec.Select(cfg, "br;q=0, gzip")
		Expect(sel.Algorithm).To(Equal(codec.Gzip))
	})

	It("skips a preferred codec the client never listed in favor of one it did", func() {
		narrow := &codec.Config{Preferred: []codec.Algorithm{codec.Brotli, codec.Gzip}}
		sel := codec.Select(narrow, "gzip")
		Expect(sel.Algorithm).To(Equal(codec.Gzip))
	})

	It("falls back to identity when nothing in the preferred set is accepted but identity is not excluded", func() {
		narrow := &codec.Config{Preferred: []codec.Algorithm{codec.Brotli}}
		sel := codec.Select(narrow, "gzip")
		Expect(sel.Algorithm).To(Equal(codec.Identity))
	})

	It("returns 406 when identity is explicitly excluded and nothing else qualifies", func() {
		narrow := &codec.Config{Preferred: []codec.Algorithm{codec.Brotli}}
		sel := codec.Select(narrow, "br;q=0, identity;q=0")
		Expect(sel.NotAcceptable).To(BeTrue())
	})
})

var _ = Describe("Eligible", func() {
	cfg := &codec.Config{MinBytes: 256, ContentTypes: []string{"text/", "application/json"}}

	It("rejects bodies under the size floor", func() {
		Expect(codec.Eligible(cfg, "text/plain", 100, false)).To(BeFalse())
	})

	It("rejects when the handler already set an explicit encoding", func() {
		Expect(codec.Eligible(cfg, "text/plain", 1000, true)).To(BeFalse())
	})

	It("rejects content types outside the allowlist", func() {
		Expect(codec.Eligible(cfg, "image/png", 1000, false)).To(BeFalse())
	})

	It("accepts an allowlisted type above the floor", func() {
		Expect(codec.Eligible(cfg, "application/json; charset=utf-8", 1000, false)).To(BeTrue())
	})
})

var _ = Describe("RatioGuard", func() {
	cfg := &codec.Config{MaxRatio: 0.9}

	It("keeps a compressed payload within the ratio", func() {
		Expect(codec.RatioGuard(cfg, 500, 1000)).To(BeTrue())
	})

	It("discards a compressed payload that barely shrank", func() {
		Expect(codec.RatioGuard(cfg, 950, 1000)).To(BeFalse())
	})
})
