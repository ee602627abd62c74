package kamux

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils/envloader"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

const (
	GET int = iota
	POST
	PUT
	PATCH
	DELETE
	HEAD
	OPTIONS
)

var methods = map[int]string{
	GET:     "GET",
	POST:    "POST",
	PUT:     "PUT",
	PATCH:   "PATCH",
	DELETE:  "DELETE",
	HEAD:    "HEAD",
	OPTIONS: "OPTIONS",
}

// Handler
type Handler func(c *Context)

// Router
type Router struct {
	Routes       map[int][]Route
	DefaultRoute Handler
	Server       *http.Server
	midwrs       []func(http.Handler) http.Handler
}

// Route
type Route struct {
	Method  string
	Pattern *regexp.Regexp
	Handler
	AllowedOrigines []string
}

// New create a router without touching settings nor databases
func New() *Router {
	return &Router{
		Routes: map[int][]Route{},
		DefaultRoute: func(c *Context) {
			c.Text(http.StatusNotFound, "Page Not Found")
		},
	}
}

// LoadEnv load env vars from multiple files into settings.Config
func (router *Router) LoadEnv(files ...string) {
	envloader.Load(files...)
	err := envloader.FillStruct(settings.Config)
	logger.CheckError(err)
}

// handle a route
func (router *Router) handle(method int, pattern string, handler Handler, allowed []string) {
	re := regexp.MustCompile(adaptParams(pattern))
	route := Route{Method: methods[method], Pattern: re, Handler: handler, AllowedOrigines: []string{}}
	if len(allowed) > 0 && method != GET && method != HEAD && method != OPTIONS {
		route.AllowedOrigines = append(route.AllowedOrigines, allowed...)
	}
	routes := router.Routes[method]
	for i, rt := range routes {
		if rt.Pattern.String() == re.String() {
			routes = append(routes[:i], routes[i+1:]...)
			break
		}
	}
	router.Routes[method] = append(routes, route)
}

// GET handle GET to a route
func (router *Router) GET(pattern string, handler Handler) {
	router.handle(GET, pattern, handler, nil)
}

// POST handle POST to a route
func (router *Router) POST(pattern string, handler Handler, allowed_origines ...string) {
	router.handle(POST, pattern, handler, allowed_origines)
}

// PUT handle PUT to a route
func (router *Router) PUT(pattern string, handler Handler, allowed_origines ...string) {
	router.handle(PUT, pattern, handler, allowed_origines)
}

// PATCH handle PATCH to a route
func (router *Router) PATCH(pattern string, handler Handler, allowed_origines ...string) {
	router.handle(PATCH, pattern, handler, allowed_origines)
}

// DELETE handle DELETE to a route
func (router *Router) DELETE(pattern string, handler Handler, allowed_origines ...string) {
	router.handle(DELETE, pattern, handler, allowed_origines)
}

// HEAD handle HEAD to a route
func (router *Router) HEAD(pattern string, handler Handler) {
	router.handle(HEAD, pattern, handler, nil)
}

// OPTIONS handle OPTIONS to a route
func (router *Router) OPTIONS(pattern string, handler Handler) {
	router.handle(OPTIONS, pattern, handler, nil)
}

// Handle handle method on pattern, method "*" register every method
func (router *Router) Handle(method string, pattern string, handler Handler, allowed ...string) {
	if method == "*" || strings.EqualFold(method, "all") {
		for m := range methods {
			router.handle(m, pattern, handler, allowed)
		}
		return
	}
	for m, v := range methods {
		if strings.EqualFold(v, method) {
			router.handle(m, pattern, handler, allowed)
			return
		}
	}
	logger.Error("method", method, "not handled")
}

// HandlerFunc support standard library http.HandlerFunc
func (router *Router) HandlerFunc(method string, pattern string, handler http.HandlerFunc, allowed ...string) {
	router.Handle(method, pattern, func(c *Context) {
		handler.ServeHTTP(c.ResponseWriter, c.Request)
	}, allowed...)
}

// Mount serve every method under prefix with h, the request path is left untouched
func (router *Router) Mount(prefix string, h http.Handler, allowed ...string) {
	prefix = strings.TrimSuffix(prefix, "/")
	router.HandlerFunc("*", prefix+"/mount:path", h.ServeHTTP, allowed...)
}
