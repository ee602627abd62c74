package kamux

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/kamux/gzip"
	"github.com/kamalshkeir/kadmin/core/kamux/logs"
	"github.com/kamalshkeir/kadmin/core/kamux/ratelimiter"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/encryption/encryptor"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

const (
	SESSION_COOKIE                  = "session"
	userKey        utils.ContextKey = "user"
)

var (
	SESSION_ENCRYPTION = true
	// LOGIN_URL is where Admin redirect anonymous users
	LOGIN_URL = "/admin/login"

	ErrNoSession = errors.New("no session")
)

// UserFromContext return the user set by Auth or Admin
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}

// UserFromSession load the user whose uuid is stored in the session cookie
func UserFromSession(r *http.Request) (models.User, error) {
	if u, ok := UserFromContext(r.Context()); ok {
		return u, nil
	}
	cookie, err := r.Cookie(SESSION_COOKIE)
	if err != nil || cookie.Value == "" {
		return models.User{}, ErrNoSession
	}
	session := cookie.Value
	if SESSION_ENCRYPTION {
		session, err = encryptor.Decrypt(session)
		if err != nil {
			return models.User{}, errors.Wrapf(ErrNoSession, "%v", err)
		}
	}
	user, err := orm.Model[models.User]().Context(r.Context()).NoCache().Where("uuid = ?", session).One()
	if err != nil {
		return models.User{}, errors.Wrapf(ErrNoSession, "%v", err)
	}
	return user, nil
}

// SetSession store the session cookie of user
func SetSession(c *Context, user models.User) error {
	session := user.Uuid
	if SESSION_ENCRYPTION {
		var err error
		session, err = encryptor.Encrypt(session)
		if err != nil {
			return err
		}
	}
	c.SetCookie(SESSION_COOKIE, session)
	return nil
}

func withUser(c *Context, user models.User) {
	ctx := context.WithValue(c.Request.Context(), userKey, user)
	c.Request = c.Request.WithContext(ctx)
}

// Auth add the session user to the request context when there is one
var Auth = func(handler Handler) Handler {
	return func(c *Context) {
		user, err := UserFromSession(c.Request)
		if err != nil {
			if _, cerr := c.Request.Cookie(SESSION_COOKIE); cerr == nil {
				c.DeleteCookie(SESSION_COOKIE)
			}
			handler(c)
			return
		}
		withUser(c, user)
		handler(c)
	}
}

// Admin allow only admin users. Anonymous pages and forms are redirected to LOGIN_URL,
// other clients get a json 401.
var Admin = func(handler Handler) Handler {
	return func(c *Context) {
		user, err := UserFromSession(c.Request)
		if err != nil {
			c.DeleteCookie(SESSION_COOKIE)
			switch c.Request.Method {
			case http.MethodGet, http.MethodHead:
			default:
				if !c.IsForm() {
					c.Json(http.StatusUnauthorized, map[string]any{"error": "authentication required"})
					return
				}
			}
			c.Redirect(LOGIN_URL, http.StatusSeeOther)
			return
		}
		if !user.IsAdmin {
			c.Text(http.StatusForbidden, "Middleware : Not allowed to access this page")
			return
		}
		withUser(c, user)
		handler(c)
	}
}

var BasicAuth = func(next Handler, user, pass string) Handler {
	return func(c *Context) {
		username, password, ok := c.Request.BasicAuth()
		if ok {
			// compare hashes in constant time so length does not leak
			usernameHash := sha256.Sum256([]byte(username))
			passwordHash := sha256.Sum256([]byte(password))
			expectedUsernameHash := sha256.Sum256([]byte(user))
			expectedPasswordHash := sha256.Sum256([]byte(pass))
			usernameMatch := subtle.ConstantTimeCompare(usernameHash[:], expectedUsernameHash[:]) == 1
			passwordMatch := subtle.ConstantTimeCompare(passwordHash[:], expectedPasswordHash[:]) == 1
			if usernameMatch && passwordMatch {
				next(c)
				return
			}
		}
		c.ResponseWriter.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
		http.Error(c.ResponseWriter, "Unauthorized", http.StatusUnauthorized)
	}
}

// AllowOrigines add a cors middleware allowing origines
func (router *Router) AllowOrigines(origines ...string) {
	o := strings.Join(origines, ",")
	router.midwrs = append(router.midwrs, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", o)
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Set("Access-Control-Allow-Methods", "*")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

var RECOVERY = func(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered", "path", r.URL.Path, "panic", err)
				jsonBody, _ := json.Marshal(map[string]string{
					"error": "There was an internal server error",
				})
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(jsonBody)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

var LatencySummary = prometheus.NewSummaryVec(
	prometheus.SummaryOpts{
		Namespace:  "api",
		Name:       "latency_seconds",
		Help:       "Requests Latencies",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	},
	[]string{"method", "route"},
)

func init() {
	prometheus.MustRegister(LatencySummary)
}

// LATENCY observe request durations labeled by the first path segment
var LATENCY = func(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		handler.ServeHTTP(w, r)
		LatencySummary.WithLabelValues(r.Method, routeLabel(r.URL.Path)).Observe(time.Since(start).Seconds())
	})
}

// routeLabel keep label cardinality bounded
func routeLabel(path string) string {
	seg := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	return "/" + seg
}

var GZIP = gzip.GZIP
var LIMITER = ratelimiter.LIMITER
var LOGS = logs.LOGS
