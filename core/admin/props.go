package admin

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/schema"
)

type View string

const (
	ViewDashboard View = "dashboard"
	ViewList      View = "list"
	ViewEdit      View = "edit"
	ViewCreate    View = "create"
)

// Props is everything the panel needs to render one request
type Props struct {
	BasePath      string          `json:"basePath"`
	APIBasePath   string          `json:"apiBasePath"`
	Title         string          `json:"title"`
	View          View            `json:"view"`
	Resources     []Resource      `json:"resources"`
	Resource      *Resource       `json:"resource,omitempty"`
	Columns       []Column        `json:"columns,omitempty"`
	Rows          []Row           `json:"rows,omitempty"`
	Pagination    *Pagination     `json:"pagination,omitempty"`
	Search        string          `json:"search,omitempty"`
	SortColumn    string          `json:"sortColumn,omitempty"`
	SortDirection string          `json:"sortDirection,omitempty"`
	RecordID      string          `json:"recordId,omitempty"`
	Fields        []FormField     `json:"fields,omitempty"`
	Message       string          `json:"message,omitempty"`
	User          *UserDescriptor `json:"user,omitempty"`
}

type Resource struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Href  string `json:"href"`
	Count int    `json:"count"`
}

type Column struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Format string `json:"format,omitempty"`
	// Href sort the list by this column, toggling the direction
	Href string `json:"href"`
}

type Row struct {
	ID    string `json:"id"`
	Href  string `json:"href"`
	Cells []Cell `json:"cells"`
}

type Cell struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Format string `json:"format,omitempty"`
}

type Pagination struct {
	Page      int    `json:"page"`
	PerPage   int    `json:"perPage"`
	Total     int    `json:"total"`
	PageCount int    `json:"pageCount"`
	PrevHref  string `json:"prevHref,omitempty"`
	NextHref  string `json:"nextHref,omitempty"`
}

type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Input    string   `json:"input"`
	Format   string   `json:"format,omitempty"`
	Value    string   `json:"value"`
	Checked  bool     `json:"checked,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required,omitempty"`
	ReadOnly bool     `json:"readOnly,omitempty"`
}

type PropsParams struct {
	BasePath    string
	APIBasePath string
	Client      Client
	Schema      *schema.Document
	Options     *Options
	Request     *http.Request
	// Users is optional, when nil Props.User stay empty
	Users UserResolver
}

// GetProps resolve the props of the request, the view is selected by the path after BasePath
func GetProps(ctx context.Context, p PropsParams) (props Props, err error) {
	start := time.Now()
	defer func() { observeProps(props.View, start, err) }()

	switch {
	case p.Client == nil:
		return props, errors.New("admin: nil client")
	case p.Schema == nil:
		return props, errors.New("admin: nil schema")
	case p.Options == nil:
		return props, errors.New("admin: nil options")
	case p.Request == nil:
		return props, errors.New("admin: nil request")
	}

	reqPath := p.Request.URL.Path
	if reqPath != p.BasePath && !strings.HasPrefix(reqPath, p.BasePath+"/") {
		return props, &NotFoundError{What: "page " + reqPath}
	}
	rest := strings.Trim(strings.TrimPrefix(reqPath, p.BasePath), "/")
	var segments []string
	if rest != "" {
		segments = strings.Split(rest, "/")
	}

	props = Props{
		BasePath:    p.BasePath,
		APIBasePath: p.APIBasePath,
		Title:       p.Options.Title,
		Message:     p.Request.URL.Query().Get("message"),
		Resources:   resources(p),
	}
	if p.Users != nil {
		u, err := p.Users.ResolveCurrentUser(p.Request)
		if err != nil {
			return props, err
		}
		props.User = u
	}

	if len(segments) == 0 {
		props.View = ViewDashboard
		return props, dashboard(ctx, p, &props)
	}
	model, ok := p.Schema.Model(segments[0])
	if !ok || !p.Options.Exposed(model.Name) {
		return props, &NotFoundError{What: "model " + segments[0]}
	}
	mo, _ := p.Options.Model(model.Name)
	res := resource(p, model, mo)
	props.Resource = &res

	switch {
	case len(segments) == 1:
		props.View = ViewList
		return props, list(ctx, p, model, mo, &props)
	case len(segments) == 2 && segments[1] == "new":
		props.View = ViewCreate
		props.Fields = formFields(model, mo, nil)
		return props, nil
	case len(segments) == 2:
		props.View = ViewEdit
		return props, edit(ctx, p, model, mo, segments[1], &props)
	default:
		return props, &NotFoundError{What: "page " + reqPath}
	}
}

func exposedModels(p PropsParams) []*schema.Model {
	res := []*schema.Model{}
	for _, m := range p.Schema.Models {
		if p.Options.Exposed(m.Name) {
			res = append(res, m)
		}
	}
	return res
}

func resource(p PropsParams, m *schema.Model, mo ModelOptions) Resource {
	title := mo.Title
	if title == "" {
		title = m.Name
	}
	return Resource{
		Name:  m.Name,
		Title: title,
		Href:  p.BasePath + "/" + m.Slug(),
	}
}

func resources(p PropsParams) []Resource {
	res := []Resource{}
	for _, m := range exposedModels(p) {
		mo, _ := p.Options.Model(m.Name)
		res = append(res, resource(p, m, mo))
	}
	return res
}

func dashboard(ctx context.Context, p PropsParams, props *Props) error {
	for i, m := range exposedModels(p) {
		n, err := p.Client.Count(ctx, m.Table, orm.Query{})
		if err != nil {
			return errors.Wrapf(err, "count %s", m.Name)
		}
		props.Resources[i].Count = n
	}
	return nil
}

func list(ctx context.Context, p PropsParams, m *schema.Model, mo ModelOptions, props *Props) error {
	q := p.Request.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	props.Search = strings.TrimSpace(q.Get("search"))
	props.SortColumn, props.SortDirection = sortOf(m, mo, q.Get("sortColumn"), q.Get("sortDirection"))

	searchFields := mo.List.Search
	if len(searchFields) == 0 {
		searchFields = m.StringFields()
	}
	orderBy := props.SortColumn
	if props.SortDirection == "desc" {
		orderBy = "-" + orderBy
	}
	query := orm.Query{
		Search:       props.Search,
		SearchFields: searchFields,
		OrderBy:      orderBy,
		Limit:        p.Options.PerPage,
		Page:         page,
	}
	total, err := p.Client.Count(ctx, m.Table, query)
	if err != nil {
		return errors.Wrapf(err, "count %s", m.Name)
	}
	rows, err := p.Client.FindMany(ctx, m.Table, query)
	if err != nil {
		return errors.Wrapf(err, "list %s", m.Name)
	}

	base := p.BasePath + "/" + m.Slug()
	display := listFields(m, mo)
	for _, f := range display {
		dir := "asc"
		if f.Name == props.SortColumn && props.SortDirection == "asc" {
			dir = "desc"
		}
		props.Columns = append(props.Columns, Column{
			Name:   f.Name,
			Title:  label(f.Name, mo),
			Format: f.Format,
			Href:   listHref(base, props.Search, f.Name, dir, 1),
		})
	}
	props.Rows = make([]Row, 0, len(rows))
	for _, row := range rows {
		id := formatValue(row[m.PrimaryKey], schema.Field{})
		r := Row{ID: id, Href: base + "/" + url.PathEscape(id)}
		for _, f := range display {
			r.Cells = append(r.Cells, Cell{Name: f.Name, Value: formatValue(row[f.Name], f), Format: f.Format})
		}
		props.Rows = append(props.Rows, r)
	}

	pageCount := int(math.Ceil(float64(total) / float64(p.Options.PerPage)))
	if pageCount < 1 {
		pageCount = 1
	}
	pag := &Pagination{Page: page, PerPage: p.Options.PerPage, Total: total, PageCount: pageCount}
	if page > 1 {
		pag.PrevHref = listHref(base, props.Search, props.SortColumn, props.SortDirection, page-1)
	}
	if page < pageCount {
		pag.NextHref = listHref(base, props.Search, props.SortColumn, props.SortDirection, page+1)
	}
	props.Pagination = pag
	return nil
}

func sortOf(m *schema.Model, mo ModelOptions, column, direction string) (string, string) {
	if direction != "desc" {
		direction = "asc"
	}
	if f, ok := m.Field(column); ok && f.IsScalar() {
		return column, direction
	}
	if mo.List.DefaultSort.Field != "" {
		dir := mo.List.DefaultSort.Direction
		if dir == "" {
			dir = "asc"
		}
		return mo.List.DefaultSort.Field, dir
	}
	return m.PrimaryKey, "desc"
}

func listHref(base, search, sortColumn, sortDirection string, page int) string {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	v.Set("sortColumn", sortColumn)
	v.Set("sortDirection", sortDirection)
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	return base + "?" + v.Encode()
}

func listFields(m *schema.Model, mo ModelOptions) []schema.Field {
	if len(mo.List.Display) > 0 {
		return pickFields(m, mo.List.Display)
	}
	res := []schema.Field{}
	for _, f := range m.ScalarFields() {
		if f.Format != "password" {
			res = append(res, f)
		}
	}
	return res
}

func pickFields(m *schema.Model, names []string) []schema.Field {
	res := make([]schema.Field, 0, len(names))
	for _, n := range names {
		if f, ok := m.Field(n); ok && f.IsScalar() {
			res = append(res, f)
		}
	}
	return res
}

func edit(ctx context.Context, p PropsParams, m *schema.Model, mo ModelOptions, id string, props *Props) error {
	row, err := p.Client.FindOne(ctx, m.Table, m.PrimaryKey, id)
	if err != nil {
		if errors.Is(err, orm.ErrNoData) {
			return &NotFoundError{What: fmt.Sprintf("%s %s", m.Name, id)}
		}
		return errors.Wrapf(err, "find %s %s", m.Name, id)
	}
	props.RecordID = id
	props.Fields = formFields(m, mo, row)
	return nil
}

func label(name string, mo ModelOptions) string {
	if a, ok := mo.Aliases[name]; ok && a != "" {
		return a
	}
	return orm.SnakeCaseToTitle(name)
}

func isReadOnly(m *schema.Model, mo ModelOptions, f schema.Field) bool {
	if f.ReadOnly || f.Name == m.PrimaryKey {
		return true
	}
	for _, ro := range mo.Edit.ReadOnly {
		if ro == f.Name {
			return true
		}
	}
	return false
}

func editFields(m *schema.Model, mo ModelOptions) []schema.Field {
	if len(mo.Edit.Display) > 0 {
		return pickFields(m, mo.Edit.Display)
	}
	return m.ScalarFields()
}

// formFields build the form of m, row is nil on creation
func formFields(m *schema.Model, mo ModelOptions, row map[string]any) []FormField {
	res := []FormField{}
	for _, f := range editFields(m, mo) {
		ro := isReadOnly(m, mo, f)
		if row == nil && ro {
			// generated by the database
			continue
		}
		ff := FormField{
			Name:     f.Name,
			Label:    label(f.Name, mo),
			Input:    inputType(f),
			Format:   f.Format,
			Options:  f.Enum,
			Required: f.Required && f.Format != "password",
			ReadOnly: ro,
		}
		var v any = f.Default
		if row != nil {
			v = row[f.Name]
		}
		if f.Format != "password" {
			ff.Value = formatInputValue(v, f)
		}
		if f.Type == "boolean" {
			ff.Checked = ff.Value == "true"
		}
		res = append(res, ff)
	}
	return res
}

func inputType(f schema.Field) string {
	switch {
	case len(f.Enum) > 0:
		return "select"
	case f.Type == "boolean":
		return "checkbox"
	case f.Type == "integer" || f.Type == "number":
		return "number"
	}
	switch f.Format {
	case "email", "password":
		return f.Format
	case "date-time":
		return "datetime-local"
	case "html":
		return "textarea"
	}
	return "text"
}

// formatValue render a database value for display
func formatValue(v any, f schema.Field) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04:05")
	case []byte:
		return string(t)
	case string:
		if f.Format == "date-time" {
			if tm, err := orm.ParseTime(t); err == nil {
				return tm.UTC().Format("2006-01-02 15:04:05")
			}
		}
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		if f.Type == "boolean" {
			return strconv.FormatBool(t != 0)
		}
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// formatInputValue render a database value for an html input
func formatInputValue(v any, f schema.Field) string {
	if f.Format == "date-time" {
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format("2006-01-02T15:04")
		case string:
			if tm, err := orm.ParseTime(t); err == nil {
				return tm.UTC().Format("2006-01-02T15:04")
			}
		}
	}
	return formatValue(v, f)
}
