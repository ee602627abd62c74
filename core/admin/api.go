package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/kamux"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/encryption/hash"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

type APIParams struct {
	BasePath    string
	APIBasePath string
	Client      Client
	Schema      *schema.Document
	Options     *Options
	// Guard wrap every data route, kamux.Admin for session auth
	Guard func(kamux.Handler) kamux.Handler
}

type api struct {
	APIParams
}

// APIHandler serve the create, update, delete and export routes under APIBasePath
func APIHandler(p APIParams) http.Handler {
	a := &api{p}
	guard := p.Guard
	if guard == nil {
		guard = func(h kamux.Handler) kamux.Handler { return h }
	}
	r := kamux.New()
	base := strings.TrimSuffix(p.APIBasePath, "/")
	r.DefaultRoute = func(c *kamux.Context) {
		c.Json(http.StatusNotFound, map[string]any{"error": "not found"})
	}

	r.GET(base+"/auth/login", a.loginPage)
	r.POST(base+"/auth/login", a.login)
	r.GET(base+"/auth/logout", a.logout)

	r.GET(base+"/model:str/export", guard(a.export))
	r.POST(base+"/model:str", guard(a.create))
	r.DELETE(base+"/model:str", guard(a.bulkDelete))
	r.POST(base+"/model:str/id:slug", guard(a.update))
	r.PUT(base+"/model:str/id:slug", guard(a.update))
	r.PATCH(base+"/model:str/id:slug", guard(a.update))
	r.DELETE(base+"/model:str/id:slug", guard(a.delete))
	return r
}

func (a *api) model(c *kamux.Context) (*schema.Model, ModelOptions, bool) {
	m, ok := a.Schema.Model(c.Params["model"])
	if !ok || !a.Options.Exposed(m.Name) {
		a.fail(c, &NotFoundError{What: "model " + c.Params["model"]}, "")
		return nil, ModelOptions{}, false
	}
	mo, _ := a.Options.Model(m.Name)
	return m, mo, true
}

func (a *api) fail(c *kamux.Context, err error, redirectTo string) {
	status := kamux.StatusOf(err)
	msg := err.Error()
	if status >= 500 {
		logger.Errorw("admin api", "path", c.Request.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	if redirectTo != "" && c.IsForm() && status < 500 {
		c.Redirect(withMessage(redirectTo, msg), http.StatusSeeOther)
		return
	}
	c.Json(status, map[string]any{"error": msg})
}

func withMessage(to, msg string) string {
	sep := "?"
	if strings.Contains(to, "?") {
		sep = "&"
	}
	return to + sep + "message=" + url.QueryEscape(msg)
}

func (a *api) pageHref(m *schema.Model, id string) string {
	h := a.BasePath + "/" + m.Slug()
	if id != "" {
		h += "/" + url.PathEscape(id)
	}
	return h
}

// input read the submitted record as a map, form clients get redirects instead of json, checkboxes absent from forms are false
func (a *api) input(c *kamux.Context, m *schema.Model, mo ModelOptions) (map[string]any, error) {
	if !c.IsForm() {
		body, err := c.BodyJson()
		if err != nil {
			return nil, badRequest("invalid json body")
		}
		return body, nil
	}
	form, err := c.BodyForm()
	if err != nil {
		return nil, badRequest("invalid form body")
	}
	data := map[string]any{}
	for k, v := range form {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	if _, ok := data["_method"]; ok {
		return data, nil
	}
	for _, f := range editFields(m, mo) {
		if f.Type == "boolean" && !isReadOnly(m, mo, f) {
			if _, ok := data[f.Name]; !ok {
				data[f.Name] = false
			}
		}
	}
	return data, nil
}

func (a *api) create(c *kamux.Context) {
	m, mo, ok := a.model(c)
	if !ok {
		return
	}
	data, err := a.input(c, m, mo)
	if err != nil {
		a.fail(c, err, a.pageHref(m, "new"))
		return
	}
	values, err := coerce(m, mo, data, true)
	if err != nil {
		a.fail(c, err, a.pageHref(m, "new"))
		return
	}
	id, err := a.Client.Create(c.Request.Context(), m.Table, values)
	if err != nil {
		a.fail(c, errors.Wrapf(err, "create %s", m.Name), "")
		return
	}
	if c.IsForm() {
		to := a.pageHref(m, "")
		if id > 0 {
			to = a.pageHref(m, strconv.Itoa(id))
		}
		c.Redirect(withMessage(to, m.Name+" created"), http.StatusSeeOther)
		return
	}
	c.Json(http.StatusCreated, map[string]any{"id": id})
}

func (a *api) update(c *kamux.Context) {
	m, mo, ok := a.model(c)
	if !ok {
		return
	}
	id := c.Params["id"]
	data, err := a.input(c, m, mo)
	if err != nil {
		a.fail(c, err, a.pageHref(m, id))
		return
	}
	if method, _ := data["_method"].(string); strings.EqualFold(method, http.MethodDelete) {
		a.deleteOne(c, m, id)
		return
	}
	values, err := coerce(m, mo, data, false)
	if err != nil {
		a.fail(c, err, a.pageHref(m, id))
		return
	}
	n, err := a.Client.Update(c.Request.Context(), m.Table, m.PrimaryKey, id, values)
	if err != nil {
		a.fail(c, errors.Wrapf(err, "update %s %s", m.Name, id), "")
		return
	}
	if n == 0 {
		a.fail(c, &NotFoundError{What: m.Name + " " + id}, a.pageHref(m, ""))
		return
	}
	if c.IsForm() {
		c.Redirect(withMessage(a.pageHref(m, id), m.Name+" updated"), http.StatusSeeOther)
		return
	}
	c.Json(http.StatusOK, map[string]any{"updated": n})
}

func (a *api) delete(c *kamux.Context) {
	m, _, ok := a.model(c)
	if !ok {
		return
	}
	a.deleteOne(c, m, c.Params["id"])
}

func (a *api) deleteOne(c *kamux.Context, m *schema.Model, id string) {
	n, err := a.Client.Delete(c.Request.Context(), m.Table, m.PrimaryKey, id)
	if err != nil {
		a.fail(c, errors.Wrapf(err, "delete %s %s", m.Name, id), "")
		return
	}
	if n == 0 {
		a.fail(c, &NotFoundError{What: m.Name + " " + id}, a.pageHref(m, ""))
		return
	}
	if c.IsForm() {
		c.Redirect(withMessage(a.pageHref(m, ""), m.Name+" deleted"), http.StatusSeeOther)
		return
	}
	c.Json(http.StatusOK, map[string]any{"deleted": n})
}

func (a *api) bulkDelete(c *kamux.Context) {
	m, _, ok := a.model(c)
	if !ok {
		return
	}
	body, err := c.BodyJson()
	if err != nil {
		a.fail(c, badRequest("expecting a json body with ids"), "")
		return
	}
	raw, _ := body["ids"].([]any)
	if len(raw) == 0 {
		a.fail(c, badRequest("ids should be a non empty list"), "")
		return
	}
	ids := make([]any, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case json.Number:
			ids = append(ids, t.String())
		case string:
			ids = append(ids, t)
		default:
			a.fail(c, badRequest("invalid id %v", v), "")
			return
		}
	}
	n, err := a.Client.Delete(c.Request.Context(), m.Table, m.PrimaryKey, ids...)
	if err != nil {
		a.fail(c, errors.Wrapf(err, "delete %s", m.Name), "")
		return
	}
	c.Json(http.StatusOK, map[string]any{"deleted": n})
}

func (a *api) export(c *kamux.Context) {
	m, _, ok := a.model(c)
	if !ok {
		return
	}
	rows, err := a.Client.FindMany(c.Request.Context(), m.Table, orm.Query{OrderBy: m.PrimaryKey})
	if err != nil {
		a.fail(c, errors.Wrapf(err, "export %s", m.Name), "")
		return
	}
	for _, f := range m.ScalarFields() {
		if f.Format == "password" {
			for _, row := range rows {
				delete(row, f.Name)
			}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		a.fail(c, err, "")
		return
	}
	c.Download(buf.Bytes(), m.Table+".json", "application/json")
}

func (a *api) loginPage(c *kamux.Context) {
	var buf bytes.Buffer
	err := LoginPage{Title: a.Options.Title, Action: c.Request.URL.Path, Error: c.QueryParam("message")}.Render(&buf)
	if err != nil {
		kamux.ErrorPage(c, err)
		return
	}
	c.Html(http.StatusOK, buf.Bytes())
}

func (a *api) login(c *kamux.Context) {
	var email, password string
	if !c.IsForm() {
		body, err := c.BodyJson()
		if err != nil {
			a.fail(c, badRequest("invalid json body"), "")
			return
		}
		email, _ = body["email"].(string)
		password, _ = body["password"].(string)
	} else {
		form, err := c.BodyForm()
		if err != nil {
			a.fail(c, badRequest("invalid form body"), "")
			return
		}
		email, password = form.Get("email"), form.Get("password")
	}
	loginURL := c.Request.URL.Path
	user, err := orm.Model[models.User]().Context(c.Request.Context()).NoCache().Where("email = ?", email).One()
	if err != nil {
		a.fail(c, &UnauthorizedError{}, loginURL)
		return
	}
	if match, err := hash.ComparePasswordToHash(password, user.Password); err != nil || !match {
		a.fail(c, &UnauthorizedError{}, loginURL)
		return
	}
	if !user.IsAdmin {
		c.Text(http.StatusForbidden, "Not Allowed to access this page")
		return
	}
	if err := kamux.SetSession(c, user); err != nil {
		a.fail(c, err, "")
		return
	}
	if c.IsForm() {
		c.Redirect(a.BasePath, http.StatusSeeOther)
		return
	}
	c.Json(http.StatusOK, map[string]any{"success": "logged in"})
}

func (a *api) logout(c *kamux.Context) {
	c.DeleteCookie(kamux.SESSION_COOKIE)
	c.Redirect("/", http.StatusSeeOther)
}

// coerce convert submitted values to column values following the schema
func coerce(m *schema.Model, mo ModelOptions, data map[string]any, creating bool) (map[string]any, error) {
	values := map[string]any{}
	for name, raw := range data {
		if name == "_method" {
			continue
		}
		f, ok := m.Field(name)
		if !ok || !f.IsScalar() {
			return nil, badRequest("unknown field %q", name)
		}
		if isReadOnly(m, mo, f) {
			return nil, badRequest("field %q is read only", name)
		}
		v, skip, err := coerceValue(f, raw, creating)
		if err != nil {
			return nil, err
		}
		if !skip {
			values[name] = v
		}
	}
	if creating {
		for _, f := range m.ScalarFields() {
			if _, ok := values[f.Name]; ok {
				continue
			}
			// uuids are generated even when read only
			if f.Format == "uuid" {
				uuid, err := utils.GenerateUUID()
				if err != nil {
					return nil, err
				}
				values[f.Name] = uuid
				continue
			}
			if isReadOnly(m, mo, f) {
				continue
			}
			if f.Required && f.Default == nil {
				return nil, badRequest("field %q is required", f.Name)
			}
		}
	}
	if len(values) == 0 {
		return nil, badRequest("nothing to save")
	}
	return values, nil
}

func coerceValue(f schema.Field, raw any, creating bool) (v any, skip bool, err error) {
	s, isString := raw.(string)
	if raw == nil || (isString && s == "" && f.Type != "string") {
		if f.Nullable {
			return nil, false, nil
		}
		return nil, true, nil
	}
	switch f.Type {
	case "integer":
		n, err := strconv.ParseInt(stringOf(raw), 10, 64)
		if err != nil {
			return nil, false, badRequest("field %q should be an integer", f.Name)
		}
		return n, false, nil
	case "number":
		n, err := strconv.ParseFloat(stringOf(raw), 64)
		if err != nil {
			return nil, false, badRequest("field %q should be a number", f.Name)
		}
		return n, false, nil
	case "boolean":
		switch strings.ToLower(stringOf(raw)) {
		case "true", "on", "1":
			return 1, false, nil
		case "false", "off", "0":
			return 0, false, nil
		}
		return nil, false, badRequest("field %q should be a boolean", f.Name)
	}
	if !isString {
		return nil, false, badRequest("field %q should be a string", f.Name)
	}
	if len(f.Enum) > 0 && !utils.SliceContains(f.Enum, s) {
		return nil, false, badRequest("field %q should be one of %v", f.Name, f.Enum)
	}
	switch f.Format {
	case "password":
		if s == "" {
			return nil, true, nil
		}
		h, err := hash.GenerateHash(s)
		return h, false, err
	case "uuid":
		if s == "" {
			if !creating {
				return nil, true, nil
			}
			u, err := utils.GenerateUUID()
			return u, false, err
		}
	case "date-time":
		if s == "" {
			if f.Nullable {
				return nil, false, nil
			}
			return nil, true, nil
		}
		t, err := orm.ParseTime(s)
		if err != nil {
			return nil, false, badRequest("field %q should be a date", f.Name)
		}
		return t.UTC(), false, nil
	}
	if s == "" && f.Nullable {
		return nil, false, nil
	}
	return s, false, nil
}

func stringOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
