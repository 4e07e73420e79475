package router

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/exp/slices"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)

// MiddlewareFunc runs before the handler. A returned error skips the handler
// and the remaining middlewares.
type MiddlewareFunc func(ctx context.Context) (context.Context, error)

// CloserFunc runs after the response has been written.
type CloserFunc func(ctx context.Context)

type Router struct {
	mux      *http.ServeMux
	prefix   string
	befores  []MiddlewareFunc
	afters   []CloserFunc
	patterns *[]string
}

func New() *Router {
	return &Router{mux: http.NewServeMux(), patterns: &[]string{}}
}

// Branch returns a router sharing the routes of r. Middlewares added to the
// branch do not affect r.
func (r *Router) Branch() *Router {
	return &Router{
		mux:      r.mux,
		prefix:   r.prefix,
		befores:  slices.Clone(r.befores),
		afters:   slices.Clone(r.afters),
		patterns: r.patterns,
	}
}

// Group is a branch whose patterns are prefixed.
func (r *Router) Group(prefix string) *Router {
	branch := r.Branch()
	branch.prefix = strings.TrimSuffix(r.prefix+prefix, "/")
	return branch
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func (r *Router) After(closer CloserFunc) {
	r.afters = append(r.afters, closer)
}

// Handle registers a plain http handler, middlewares are not applied.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.register(pattern)
	r.mux.Handle(r.prefix+pattern, handler)
}

// Patterns lists every registered route.
func (r *Router) Patterns() []string {
	return slices.Clone(*r.patterns)
}

func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) register(pattern string) {
	*r.patterns = append(*r.patterns, r.prefix+pattern)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodGet, pattern, handler)
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	route(r, http.MethodPost, pattern, handler)
}

func route[Request, Response any](
	r *Router, method, pattern string, handler HandlerFunc[Request, Response],
) {
	r.register(pattern)
	r.mux.Handle(r.prefix+pattern, &wrapper[Request, Response]{
		method:  method,
		handler: handler,
		befores: slices.Clone(r.befores),
		afters:  slices.Clone(r.afters),
	})
}
