// Package router maps a request's method and path to one operation of a
// service. Each service owns its own Router; routes are tried in the order
// they were declared and the first match wins.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/cppla/qalite/utils"
)

// ErrNoRoute is returned by Match when no route accepts the request.
var ErrNoRoute = errors.New("no route matched")

// Params holds the values captured by {name} segments.
type Params map[string]string

// Get returns a captured value or "".
func (p Params) Get(name string) string { return p[name] }

// Handler runs one operation.
type Handler func(ctx context.Context, req *utils.Request, params Params) (*utils.Response, error)

// Route binds a method and a path pattern such as "/questions/{id}/vote" to a
// handler. A {name} segment matches any single segment.
type Route struct {
	Method  string
	Pattern string
	Handler Handler
}

type segment struct {
	literal string
	param   string
}

type compiledRoute struct {
	method   string
	segments []segment
	handler  Handler
}

// Router is an ordered route table.
type Router struct {
	routes []compiledRoute
}

// New compiles routes in the given order.
func New(routes ...Route) *Router {
	r := &Router{routes: make([]compiledRoute, 0, len(routes))}
	for _, rt := range routes {
		parts := Segments(rt.Pattern)
		segs := make([]segment, len(parts))
		for i, p := range parts {
			if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
				segs[i] = segment{param: p[1 : len(p)-1]}
			} else {
				segs[i] = segment{literal: p}
			}
		}
		r.routes = append(r.routes, compiledRoute{method: rt.Method, segments: segs, handler: rt.Handler})
	}
	return r
}

// Match returns the handler of the first route accepting method and path
// together with the captured parameters, or ErrNoRoute. A path matching a
// route under a different method is still ErrNoRoute.
func (r *Router) Match(method, path string) (Handler, Params, error) {
	parts := Segments(path)
	for _, rt := range r.routes {
		if rt.method != method || len(rt.segments) != len(parts) {
			continue
		}
		if params, ok := rt.match(parts); ok {
			return rt.handler, params, nil
		}
	}
	return nil, nil, ErrNoRoute
}

func (rt compiledRoute) match(parts []string) (Params, bool) {
	params := Params{}
	for i, seg := range rt.segments {
		if seg.param != "" {
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// Segments splits a path on "/" and drops empty segments.
func Segments(path string) []string {
	raw := strings.Split(path, "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
