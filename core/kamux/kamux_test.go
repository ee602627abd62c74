package kamux

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptParams(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		match   bool
		params  map[string]string
	}{
		{"/users/id:int", "/users/12", true, map[string]string{"id": "12"}},
		{"/users/id:int", "/users/ab", false, nil},
		{"/blog/slug:slug", "/blog/hello-world", true, map[string]string{"slug": "hello-world"}},
		{"/admin/rest:path", "/admin", true, map[string]string{"rest": ""}},
		{"/admin/rest:path", "/admin/", true, nil},
		{"/admin/rest:path", "/admin/user/1", true, map[string]string{"rest": "/user/1"}},
		{"/admin/rest:path", "/administrator", false, nil},
		{"/static/*", "/static/app.css", true, nil},
		{"/ping", "/ping/", true, nil},
	}
	for _, tc := range cases {
		r := New()
		var got map[string]string
		r.GET(tc.pattern, func(c *Context) {
			got = c.Params
			c.Text(http.StatusOK, "ok")
		})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if !tc.match {
			assert.Equal(t, http.StatusNotFound, rec.Code, tc.pattern+" "+tc.path)
			continue
		}
		require.Equal(t, http.StatusOK, rec.Code, tc.pattern+" "+tc.path)
		for k, v := range tc.params {
			assert.Equal(t, v, got[k])
		}
	}
}

func TestHandleReplaceSamePattern(t *testing.T) {
	r := New()
	r.GET("/a", func(c *Context) { c.Text(200, "first") })
	r.GET("/a", func(c *Context) { c.Text(200, "second") })
	assert.Len(t, r.Routes[GET], 1)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, "second", rec.Body.String())
}

func TestCrossOrigin(t *testing.T) {
	r := New()
	r.POST("/open", func(c *Context) { c.Text(200, "ok") }, "trusted.example")
	r.POST("/closed", func(c *Context) { c.Text(200, "ok") })

	req := httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/open", nil)
	req.Header.Set("Origin", "https://trusted.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/closed", nil)
	req.Header.Set("Origin", "http://"+req.Host)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status error" }
func (e statusErr) HTTPStatus() int { return e.code }

type testProps struct {
	Name string `json:"name"`
}

func TestPageLifecycle(t *testing.T) {
	var failWith error
	r := New()
	Page(r, "/page/rest:path", PageHandler[testProps]{
		GetServerSideProps: func(ctx context.Context, req *http.Request) (testProps, error) {
			if failWith != nil {
				return testProps{}, failWith
			}
			return testProps{Name: "props" + req.URL.Path}, nil
		},
		Render: func(p testProps) Renderer {
			return RendererFunc(func(w io.Writer) error {
				if p.Name == "props/page/broken" {
					return errors.New("template exploded")
				}
				_, err := io.WriteString(w, "<p>"+p.Name+"</p>")
				return err
			})
		},
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>props/page/x</p>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var got testProps
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "props/page", got.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")

	failWith = statusErr{code: http.StatusNotFound}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "status error")

	failWith = errors.New("db down")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 400, StatusOf(statusErr{code: 400}))
	assert.Equal(t, 500, StatusOf(errors.New("x")))
	assert.Equal(t, 504, StatusOf(context.DeadlineExceeded))
}

func TestMount(t *testing.T) {
	sub := New()
	sub.DELETE("/api/things/id:int", func(c *Context) { c.Text(200, "deleted "+c.Params["id"]) })
	r := New()
	r.Mount("/api", sub)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/things/3", nil))
	assert.Equal(t, "deleted 3", rec.Body.String())
}

func TestMiddlewares(t *testing.T) {
	r := New()
	r.GET("/panic", func(c *Context) { panic("boom") })
	r.GET("/hello", func(c *Context) { c.Text(200, strings.Repeat("hello ", 100)) })
	r.UseMiddlewares(LOGS, GZIP, LATENCY, RECOVERY)
	h := r.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Less(t, rec.Body.Len(), 600)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/pagerouter", routeLabel("/pagerouter/admin/user/1"))
	assert.Equal(t, "/", routeLabel("/"))
}

func TestAdminAnonymous(t *testing.T) {
	old := LOGIN_URL
	LOGIN_URL = "/auth/login"
	t.Cleanup(func() { LOGIN_URL = old })

	r := New()
	called := false
	h := Admin(func(c *Context) {
		called = true
		c.Text(http.StatusOK, "secret")
	})
	r.GET("/panel", h)
	r.POST("/panel", h)

	cases := []struct {
		method, contentType string
		status              int
	}{
		{http.MethodGet, "", http.StatusSeeOther},
		{http.MethodPost, "application/x-www-form-urlencoded", http.StatusSeeOther},
		{http.MethodPost, "application/json", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/panel", strings.NewReader(`{"title":"x"}`))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.method+" "+tc.contentType)
		if tc.status == http.StatusSeeOther {
			assert.Equal(t, "/auth/login", w.Header().Get("Location"))
		} else {
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		}
	}
	assert.False(t, called)
}
