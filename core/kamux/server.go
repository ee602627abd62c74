package kamux

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

var (
	ReadTimeout  = 5 * time.Second
	WriteTimeout = 20 * time.Second
	IdleTimeout  = 20 * time.Second
)

// UseMiddlewares chain global middlewares applied on the router, the last one is the outermost
func (router *Router) UseMiddlewares(midws ...func(http.Handler) http.Handler) {
	router.midwrs = append(router.midwrs, midws...)
}

// Handler return the router wrapped by its middlewares
func (router *Router) Handler() http.Handler {
	var handler http.Handler = router
	for _, m := range router.midwrs {
		handler = m(handler)
	}
	return handler
}

func (router *Router) initDefaultUrls() {
	router.GET("/mon/ping", func(c *Context) {
		c.Text(http.StatusOK, "pong")
	})
	if settings.Config.Monitoring {
		router.HandlerFunc("GET", "/metrics", promhttp.Handler().ServeHTTP)
	}
}

// initServer init the server with midws
func (router *Router) initServer() {
	router.initDefaultUrls()
	host := settings.Config.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := settings.Config.Port
	if port == "" {
		port = "9313"
	}
	router.Server = &http.Server{
		Addr:         host + ":" + port,
		Handler:      router.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}
}

// Run start the server, it block until shutdown
func (router *Router) Run() error {
	router.initServer()
	go router.gracefulShutdown()
	logger.Printfs("grrunning on http://%s", router.Server.Addr)
	if err := router.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "unable to run the server")
	}
	logger.Printfs("grServer Off !")
	return nil
}

// RunTLS start the server with certFile and keyFile, settings Cert and Key if empty
func (router *Router) RunTLS(certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		settings.Config.Cert = certFile
		settings.Config.Key = keyFile
	}
	router.initServer()
	go router.gracefulShutdown()
	logger.Printfs("grrunning on https://%s", router.Server.Addr)
	err := router.Server.ListenAndServeTLS(settings.Config.Cert, settings.Config.Key)
	if !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "unable to run the server")
	}
	logger.Printfs("grServer Off !")
	return nil
}

// ServeHTTP serveHTTP by handling methods,pattern,and params
func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := &Context{Request: r, ResponseWriter: w, Params: map[string]string{}}
	var allRoutes []Route
	switch r.Method {
	case "GET":
		allRoutes = router.Routes[GET]
	case "POST":
		allRoutes = router.Routes[POST]
	case "PUT":
		allRoutes = router.Routes[PUT]
	case "PATCH":
		allRoutes = router.Routes[PATCH]
	case "DELETE":
		allRoutes = router.Routes[DELETE]
	case "HEAD":
		allRoutes = router.Routes[HEAD]
	case "OPTIONS":
		allRoutes = router.Routes[OPTIONS]
	default:
		c.Text(http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	for _, rt := range allRoutes {
		matches := rt.Pattern.FindStringSubmatch(c.URL.Path)
		if len(matches) == 0 {
			continue
		}
		for i, name := range rt.Pattern.SubexpNames()[1:] {
			if name != "" {
				c.Params[name] = matches[i+1]
			}
		}
		handleHttp(c, rt)
		return
	}
	router.DefaultRoute(c)
}

// gracefulShutdown close databases then the server on SIGINT or SIGTERM
func (router *Router) gracefulShutdown() {
	err := utils.GracefulShutdown(func() error {
		if err := orm.ShutdownDatabases(); err != nil {
			logger.Error("unable to shutdown databases:", err)
		} else {
			logger.Printfs("blDatabases Closed")
		}
		router.Server.SetKeepAlivesEnabled(false)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return router.Server.Shutdown(ctx)
	})
	logger.CheckError(err)
}

// adaptParams turn a pattern into a regexp
//
//	/users/id:int          -> id digits
//	/users/name:str        -> name word
//	/blog/slug:slug        -> slug
//	/admin/rest:path       -> rest is "" or "/..." so /admin matches too
func adaptParams(url string) string {
	if !strings.Contains(url, ":") {
		if url[len(url)-1] == '*' {
			return url
		}
		return "^" + url + "(|/)?$"
	}
	pattern := strings.Builder{}
	for _, elem := range strings.Split(url, "/")[1:] {
		switch {
		case elem == "":
			continue
		case elem[0] == ':':
			pattern.WriteString(`/(?P<` + elem[1:] + `>\w+)`)
		case !strings.Contains(elem, ":"):
			pattern.WriteString("/" + regexp.QuoteMeta(elem))
		default:
			name, nameType, _ := strings.Cut(elem, ":")
			switch nameType {
			case "str":
				pattern.WriteString(`/(?P<` + name + `>\w+)`)
			case "int":
				pattern.WriteString(`/(?P<` + name + `>\d+)`)
			case "float":
				pattern.WriteString(`/(?P<` + name + `>[-+]?(?:[0-9]*\.[0-9]+|[0-9]+))`)
			case "path":
				pattern.WriteString(`(?P<` + name + `>(?:/.*)?)`)
			default:
				pattern.WriteString(`/(?P<` + name + `>[a-z0-9]+(?:-[a-z0-9]+)*)`)
			}
		}
	}
	if pattern.Len() == 0 {
		return "^/$"
	}
	return "^" + pattern.String() + "(|/)?$"
}

// checkSameSite report whether the request come from the server origin, requests without Origin are not cross site
func checkSameSite(c *Context) bool {
	origin := c.Request.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == c.Request.Host
}

func handleHttp(c *Context, rt Route) {
	switch rt.Method {
	case "GET", "HEAD", "OPTIONS":
		rt.Handler(c)
		return
	}
	if checkSameSite(c) {
		rt.Handler(c)
		return
	}
	origin := c.Request.Header.Get("Origin")
	for _, dom := range rt.AllowedOrigines {
		if strings.Contains(origin, dom) {
			rt.Handler(c)
			return
		}
	}
	c.Text(http.StatusForbidden, "you are not allowed cross origin this url")
}
