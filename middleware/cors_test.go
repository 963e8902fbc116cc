package middleware_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/reactorhttp/headers"
	"github.com/sabouaram/reactorhttp/middleware"
	"github.com/sabouaram/reactorhttp/router"
)

var _ = Describe("CORS", func() {
	It("rejects a preflight from a disallowed origin", func() {
		p := &middleware.CORSPolicy{AllowedOrigins: []string{"https://good.example"}}
		d := middleware.EvaluatePreflight(p, "https://evil.example", "GET", "", router.MethodGet)
		Expect(d.Allowed).To(BeFalse())
		Expect(d.StatusCode).To(Equal(403))
	})

	It("rejects a preflight method not in the route's allow set", func() {
		p := &middleware.CORSPolicy{AllowedOrigins: []string{"*"}}
		d := middleware.EvaluatePreflight(p, "https://good.example", "DELETE", "", router.MethodGet)
		Expect(d.StatusCode).To(Equal(405))
	})

	It("accepts a valid preflight with 204", func() {
		p := &middleware.CORSPolicy{AllowedOrigins: []string{"*"}, AllowedHeaders: []string{"X-Test"}}
		d := middleware.EvaluatePreflight(p, "https://good.example", "GET", "X-Test", router.MethodGet)
		Expect(d.Allowed).To(BeTrue())
		Expect(d.StatusCode).To(Equal(204))
	})

	It("mirrors the specific origin and dedups Vary when credentials are on", func() {
		p := &middleware.CORSPolicy{AllowedOrigins: []string{"https://good.example"}, AllowCredentials: true}
		h := headers.NewResponseHeaders()
		h.Set("Vary", "Accept-Encoding")

		d := middleware.EvaluateActual(p, h, "https://good.example")
		Expect(d.Allowed).To(BeTrue())

		origin, _ := h.Get("Access-Control-Allow-Origin")
		Expect(origin).To(Equal("https://good.example"))

		vary, _ := h.Get("Vary")
		Expect(vary).To(Equal("Accept-Encoding, Origin"))

		middleware.AppendVary(h, "Origin")
		vary2, _ := h.Get("Vary")
		Expect(vary2).To(Equal(vary))
	})
})
