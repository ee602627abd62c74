package main

import (
	"net/http"
	"os"

	"github.com/kamalshkeir/kadmin"
	"github.com/kamalshkeir/kadmin/apps/example/pages/pagerouter/admin"
	"github.com/kamalshkeir/kadmin/apps/example/prisma"
	"github.com/kamalshkeir/kadmin/core/kamux"
	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

func main() {
	app, err := kadmin.New()
	if logger.CheckError(err) {
		os.Exit(1)
	}
	defer logger.Sync()
	if logger.CheckError(prisma.Migrate()) {
		os.Exit(1)
	}
	if logger.CheckError(admin.Register(app)) {
		os.Exit(1)
	}
	app.GET("/", func(c *kamux.Context) {
		c.Redirect(admin.BasePath, http.StatusFound)
	})

	if settings.Config.Cert != "" && settings.Config.Key != "" {
		err = app.RunTLS(settings.Config.Cert, settings.Config.Key)
	} else {
		err = app.Run()
	}
	logger.CheckError(err)
}
