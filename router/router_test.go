package router_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/reactorhttp/router"
)

func okHandler(*router.Context) router.Response { return statusResp{200} }

type statusResp struct{ code int }

func (s statusResp) StatusCode() int { return s.code }

var _ = Describe("Router", func() {
	It("matches a literal path", func() {
		r := router.New(router.Strict)
		Expect(r.Register(router.MethodGet, "/hello", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/hello")
		Expect(ok).To(BeTrue())
		Expect(res.Handler).NotTo(BeNil())
	})

	It("captures named parameters", func() {
		r := router.New(router.Strict)
		Expect(r.Register(router.MethodGet, "/users/{id}", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/users/42")
		Expect(ok).To(BeTrue())
		ctx := &router.Context{Params: res.Params}
		v, found := ctx.Param("id")
		Expect(found).To(BeTrue())
		Expect(v).To(Equal("42"))
	})

	It("rejects mixed named/anonymous captures", func() {
		r := router.New(router.Strict)
		err := r.Register(router.MethodGet, "/v{major}.{}", okHandler)
		Expect(err).To(HaveOccurred())
	})

	It("returns 405-shaped result with Allow set when method missing", func() {
		r := router.New(router.Strict)
		Expect(r.Register(router.MethodGet, "/only-get", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodPost, "/only-get")
		Expect(ok).To(BeTrue())
		Expect(res.MethodNotAllowed).To(BeTrue())
		Expect(router.AllowHeader(res.AllowedMethods)).To(ContainSubstring("GET"))
		Expect(router.AllowHeader(res.AllowedMethods)).To(ContainSubstring("HEAD"))
	})

	It("falls back HEAD to GET handler", func() {
		r := router.New(router.Strict)
		Expect(r.Register(router.MethodGet, "/page", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodHead, "/page")
		Expect(ok).To(BeTrue())
		Expect(res.Handler).NotTo(BeNil())
	})

	It("Normalize policy accepts the opposite slash variant", func() {
		r := router.New(router.Normalize)
		Expect(r.Register(router.MethodGet, "/things/", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/things")
		Expect(ok).To(BeTrue())
		Expect(res.Handler).NotTo(BeNil())
	})

	It("Redirect policy signals canonical form exactly once", func() {
		r := router.New(router.Redirect)
		Expect(r.Register(router.MethodGet, "/canon", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/canon/")
		Expect(ok).To(BeTrue())
		Expect(res.RedirectTo).To(Equal("/canon"))
	})

	It("never redirects root", func() {
		r := router.New(router.Redirect)
		Expect(r.Register(router.MethodGet, "/", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/")
		Expect(ok).To(BeTrue())
		Expect(res.RedirectTo).To(BeEmpty())
	})

	It("matches a trailing wildcard", func() {
		r := router.New(router.Strict)
		Expect(r.Register(router.MethodGet, "/static/*", okHandler)).To(Succeed())

		res, ok := r.Match(router.MethodGet, "/static/css/app.css")
		Expect(ok).To(BeTrue())
		ctx := &router.Context{Params: res.Params}
		v, _ := ctx.Param("*")
		Expect(v).To(Equal("css/app.css"))
	})
})
