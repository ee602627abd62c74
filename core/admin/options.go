package admin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kamalshkeir/kadmin/core/schema"
)

const DefaultPerPage = 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options configure the admin panel, they are loaded once and shared read-only
type Options struct {
	Title   string                  `yaml:"title" json:"title" validate:"required"`
	PerPage int                     `yaml:"perPage" json:"perPage" validate:"min=1,max=100"`
	Models  map[string]ModelOptions `yaml:"models" json:"models" validate:"dive"`
}

type ModelOptions struct {
	Title   string            `yaml:"title" json:"title,omitempty"`
	List    ListOptions       `yaml:"list" json:"list"`
	Edit    EditOptions       `yaml:"edit" json:"edit"`
	Aliases map[string]string `yaml:"aliases" json:"aliases,omitempty"`
}

type ListOptions struct {
	Display     []string    `yaml:"display" json:"display,omitempty"`
	Search      []string    `yaml:"search" json:"search,omitempty"`
	DefaultSort SortOptions `yaml:"defaultSort" json:"defaultSort"`
}

type SortOptions struct {
	Field     string `yaml:"field" json:"field,omitempty"`
	Direction string `yaml:"direction" json:"direction,omitempty" validate:"omitempty,oneof=asc desc"`
}

type EditOptions struct {
	Display  []string `yaml:"display" json:"display,omitempty"`
	ReadOnly []string `yaml:"readOnly" json:"readOnly,omitempty"`
}

// LoadOptions decode yaml options, apply defaults and validate them
func LoadOptions(data []byte) (*Options, error) {
	opts := &Options{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, errors.Wrap(err, "decode admin options")
	}
	if opts.PerPage == 0 {
		opts.PerPage = DefaultPerPage
	}
	if err := validate.Struct(opts); err != nil {
		return nil, errors.Wrap(err, "invalid admin options")
	}
	return opts, nil
}

// Model return the options of model name, case insensitive
func (o *Options) Model(name string) (ModelOptions, bool) {
	if mo, ok := o.Models[name]; ok {
		return mo, true
	}
	for k, mo := range o.Models {
		if strings.EqualFold(k, name) {
			return mo, true
		}
	}
	return ModelOptions{}, false
}

// Exposed report whether model is reachable from the panel
func (o *Options) Exposed(model string) bool {
	if len(o.Models) == 0 {
		return true
	}
	_, ok := o.Model(model)
	return ok
}

// Check verify that every model and field referenced by o exists in doc
func (o *Options) Check(doc *schema.Document) error {
	problems := []string{}
	for name, mo := range o.Models {
		m, ok := doc.Model(name)
		if !ok {
			problems = append(problems, fmt.Sprintf("model %q not in schema", name))
			continue
		}
		fields := map[string][]string{
			"list.display":  mo.List.Display,
			"list.search":   mo.List.Search,
			"edit.display":  mo.Edit.Display,
			"edit.readOnly": mo.Edit.ReadOnly,
		}
		if mo.List.DefaultSort.Field != "" {
			fields["list.defaultSort"] = []string{mo.List.DefaultSort.Field}
		}
		for alias := range mo.Aliases {
			fields["aliases"] = append(fields["aliases"], alias)
		}
		for where, names := range fields {
			for _, f := range names {
				if field, ok := m.Field(f); !ok || !field.IsScalar() {
					problems = append(problems, fmt.Sprintf("%s.%s: unknown field %q", name, where, f))
				}
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return errors.Newf("admin options do not match the schema: %s", strings.Join(problems, "; "))
}
