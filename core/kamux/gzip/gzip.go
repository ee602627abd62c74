package gzip

import (
	"bufio"
	"compress/gzip"
	"net"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

var GZIP = func(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "metrics") || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			handler.ServeHTTP(w, r)
			return
		}
		gwriter := NewWrappedResponseWriter(w)
		defer gwriter.Close()
		gwriter.Header().Set("Content-Encoding", "gzip")
		gwriter.Header().Add("Vary", "Accept-Encoding")
		handler.ServeHTTP(gwriter, r)
	})
}

type WrappedResponseWriter struct {
	w       http.ResponseWriter
	gwriter *gzip.Writer
}

func NewWrappedResponseWriter(w http.ResponseWriter) *WrappedResponseWriter {
	return &WrappedResponseWriter{w, gzip.NewWriter(w)}
}

func (wrw *WrappedResponseWriter) Header() http.Header {
	return wrw.w.Header()
}

func (wrw *WrappedResponseWriter) WriteHeader(statuscode int) {
	wrw.w.Header().Del("Content-Length")
	wrw.w.WriteHeader(statuscode)
}

func (wrw *WrappedResponseWriter) Write(d []byte) (int, error) {
	return wrw.gwriter.Write(d)
}

func (wrw *WrappedResponseWriter) Flush() {
	_ = wrw.gwriter.Flush()
	if f, ok := wrw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (wrw *WrappedResponseWriter) Close() {
	_ = wrw.gwriter.Close()
}

func (wrw *WrappedResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := wrw.w.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("http.Hijacker interface is not supported")
}
