// Package admin serve the data routes of the page router admin
package admin

import (
	"net/http"

	"github.com/kamalshkeir/kadmin/apps/example/options"
	"github.com/kamalshkeir/kadmin/apps/example/prisma"
	adminui "github.com/kamalshkeir/kadmin/core/admin"
	"github.com/kamalshkeir/kadmin/core/kamux"
	"github.com/kamalshkeir/kadmin/core/settings"
)

// Handler build the rate limited api answering under apiBasePath, redirects go to basePath
func Handler(basePath, apiBasePath string) (http.Handler, error) {
	client, err := prisma.Client()
	if err != nil {
		return nil, err
	}
	doc, err := prisma.Schema()
	if err != nil {
		return nil, err
	}
	opts := options.Options()
	if err := opts.Check(doc); err != nil {
		return nil, err
	}
	var guard func(kamux.Handler) kamux.Handler
	if settings.Config.Admin.Auth == "session" {
		guard = kamux.Admin
	}
	return kamux.LIMITER(adminui.APIHandler(adminui.APIParams{
		BasePath:    basePath,
		APIBasePath: apiBasePath,
		Client:      client,
		Schema:      doc,
		Options:     opts,
		Guard:       guard,
	})), nil
}
