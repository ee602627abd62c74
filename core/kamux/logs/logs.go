package logs

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// LOGS log every request with its status and duration
var LOGS = func(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if utils.StringContains(r.URL.Path, "metrics", "favicon", "/mon/ping") {
			h.ServeHTTP(w, r)
			return
		}
		recorder := &StatusRecorder{
			ResponseWriter: w,
			Status:         200,
		}
		t := time.Now()
		h.ServeHTTP(recorder, r)
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.Status,
			"remote", r.RemoteAddr,
			"took", time.Since(t),
		}
		if recorder.Status >= 400 {
			logger.Errorw("request", fields...)
			return
		}
		logger.Infow("request", fields...)
	})
}

func (r *StatusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *StatusRecorder) Flush() {
	if v, ok := r.ResponseWriter.(http.Flusher); ok {
		v.Flush()
	}
}

func (r *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("LOGS MIDDLEWARE: http.Hijacker interface is not supported")
}
