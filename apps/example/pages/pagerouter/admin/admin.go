// Package admin bootstrap the admin panel page of the page router
package admin

import (
	"context"
	"net/http"

	"github.com/kamalshkeir/kadmin/apps/example/options"
	api "github.com/kamalshkeir/kadmin/apps/example/pages/api/pagerouter/admin"
	"github.com/kamalshkeir/kadmin/apps/example/prisma"
	adminui "github.com/kamalshkeir/kadmin/core/admin"
	"github.com/kamalshkeir/kadmin/core/kamux"
	"github.com/kamalshkeir/kadmin/core/settings"
)

const (
	BasePath    = "/pagerouter/admin"
	APIBasePath = "/api/pagerouter/admin"
)

var placeholderUser = adminui.StaticUser{
	Data:      adminui.UserData{Name: "John Doe"},
	LogoutURL: "/",
}

var (
	getProps  = adminui.GetProps
	getClient = func() (adminui.Client, error) {
		c, err := prisma.Client()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
)

func users() adminui.UserResolver {
	if settings.Config.Admin.Auth == "session" {
		return adminui.SessionUser{LogoutURL: APIBasePath + "/auth/logout"}
	}
	return placeholderUser
}

// Page render the panel for props
func Page(props adminui.Props) kamux.Renderer {
	user := adminui.UserDescriptor(placeholderUser)
	if props.User != nil {
		user = *props.User
	}
	return &adminui.Panel{
		Props:   props,
		Options: options.Options(),
		User:    user,
	}
}

// GetServerSideProps resolve the panel props of r, errors are returned as is
func GetServerSideProps(ctx context.Context, r *http.Request) (adminui.Props, error) {
	client, err := getClient()
	if err != nil {
		return adminui.Props{}, err
	}
	doc, err := prisma.Schema()
	if err != nil {
		return adminui.Props{}, err
	}
	return getProps(ctx, adminui.PropsParams{
		BasePath:    BasePath,
		APIBasePath: APIBasePath,
		Client:      client,
		Schema:      doc,
		Options:     options.Options(),
		Request:     r,
		Users:       users(),
	})
}

// Register add the page on BasePath and every sub path, and mount its api
func Register(router *kamux.Router) error {
	h, err := api.Handler(BasePath, APIBasePath)
	if err != nil {
		return err
	}
	var guards []func(kamux.Handler) kamux.Handler
	if settings.Config.Admin.Auth == "session" {
		kamux.LOGIN_URL = APIBasePath + "/auth/login"
		guards = append(guards, kamux.Admin)
	}
	kamux.Page(router, BasePath+"/nextadmin:path", kamux.PageHandler[adminui.Props]{
		GetServerSideProps: GetServerSideProps,
		Render:             Page,
	}, guards...)
	router.Mount(APIBasePath, h)
	return nil
}
