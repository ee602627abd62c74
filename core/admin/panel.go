package admin

import (
	"embed"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html templates/*.css
var templatesFS embed.FS

var (
	richText = bluemonday.UGCPolicy()
	styles   template.CSS
	tmpl     = template.Must(template.New("").Funcs(template.FuncMap{
		"sanitize": func(s string) template.HTML {
			return template.HTML(richText.Sanitize(s))
		},
	}).ParseFS(templatesFS, "templates/*.html"))
)

func init() {
	css, err := templatesFS.ReadFile("templates/admin.css")
	if err != nil {
		panic(err)
	}
	styles = template.CSS(css)
}

// Panel render the admin ui for resolved props
type Panel struct {
	Props   Props
	Options *Options
	User    UserDescriptor
}

type panelData struct {
	Props
	Options    *Options
	Me         UserDescriptor
	Styles     template.CSS
	FormAction string
	ListHref   string
}

func (p *Panel) Render(w io.Writer) error {
	if p.Options == nil {
		return errors.New("admin: panel without options")
	}
	data := panelData{
		Props:   p.Props,
		Options: p.Options,
		Me:      p.User,
		Styles:  styles,
	}
	if data.Title == "" {
		data.Title = p.Options.Title
	}
	if r := p.Props.Resource; r != nil {
		data.ListHref = r.Href
		data.FormAction = p.Props.APIBasePath + "/" + strings.ToLower(r.Name)
		if p.Props.View == ViewEdit {
			data.FormAction += "/" + url.PathEscape(p.Props.RecordID)
		}
	}
	switch p.Props.View {
	case ViewDashboard, ViewList, ViewEdit, ViewCreate:
	default:
		return errors.Newf("admin: unknown view %q", p.Props.View)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// LoginPage render the login form posting to action
type LoginPage struct {
	Title  string
	Action string
	Error  string
}

func (l LoginPage) Render(w io.Writer) error {
	return tmpl.ExecuteTemplate(w, "login", struct {
		LoginPage
		Styles template.CSS
	}{l, styles})
}
