package kamux

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

// Renderer write a page
type Renderer interface {
	Render(w io.Writer) error
}

// RendererFunc adapt a function to Renderer
type RendererFunc func(w io.Writer) error

func (f RendererFunc) Render(w io.Writer) error {
	return f(w)
}

// PageHandler describe a server rendered page, props are resolved for each request then rendered
type PageHandler[P any] struct {
	GetServerSideProps func(ctx context.Context, r *http.Request) (P, error)
	Render             func(props P) Renderer
}

// Page register a GET page on pattern
func Page[P any](router *Router, pattern string, page PageHandler[P], middlewares ...func(Handler) Handler) {
	router.GET(pattern, pageHandler(page, middlewares...))
}

func pageHandler[P any](page PageHandler[P], middlewares ...func(Handler) Handler) Handler {
	h := func(c *Context) {
		props, err := page.GetServerSideProps(c.Request.Context(), c.Request)
		if err != nil {
			ErrorPage(c, err)
			return
		}
		if wantsJson(c.Request) {
			c.Json(http.StatusOK, props)
			return
		}
		var buf bytes.Buffer
		if err := page.Render(props).Render(&buf); err != nil {
			ErrorPage(c, errors.Wrap(err, "render"))
			return
		}
		c.Html(http.StatusOK, buf.Bytes())
	}
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}

func wantsJson(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.HasPrefix(accept, "application/json")
}

// StatusOf return the http status carried by err, 500 when none
func StatusOf(err error) int {
	var hs interface{ HTTPStatus() int }
	if errors.As(err, &hs) {
		return hs.HTTPStatus()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ErrorPage log err and answer with its status, internal errors are not shown to the client
func ErrorPage(c *Context, err error) {
	status := StatusOf(err)
	msg := err.Error()
	if status >= 500 {
		logger.Errorw("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
		msg = http.StatusText(status)
	} else {
		logger.Warn(c.Request.URL.Path, status, err)
	}
	if wantsJson(c.Request) {
		c.Json(status, map[string]any{"error": msg})
		return
	}
	page := "<!DOCTYPE html><html><head><title>" + http.StatusText(status) + "</title></head><body><h1>" +
		http.StatusText(status) + "</h1><p>" + html.EscapeString(msg) + "</p></body></html>"
	c.Html(status, []byte(page))
}
