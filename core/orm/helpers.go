package orm

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")
	identRe       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ToSnakeCase convert CamelCase to snake_case
func ToSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}

// SnakeCaseToTitle convert snake_case to 'Snake Case'
func SnakeCaseToTitle(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// IsIdentifier report whether s is safe to use as a table or column name
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// adaptPlaceholdersToDialect rewrite '?' to '$n' for postgres
func adaptPlaceholdersToDialect(query *string, dialect string) *string {
	if dialect != POSTGRES || !strings.Contains(*query, "?") {
		return query
	}
	split := strings.Split(*query, "?")
	for i := range split[:len(split)-1] {
		split[i] = split[i] + "$" + strconv.Itoa(i+1)
	}
	*query = strings.Join(split, "")
	return query
}

// fillStruct set fields of dest from row, matching snake_case field names to columns
func fillStruct(dest any, row map[string]any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.New("fillStruct: dest should be a pointer to struct")
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		v, ok := row[ToSnakeCase(sf.Name)]
		if !ok || v == nil {
			continue
		}
		if err := setFieldValue(rv.Field(i), v); err != nil {
			return errors.Wrapf(err, "field %s", sf.Name)
		}
	}
	return nil
}

func setFieldValue(fld reflect.Value, value any) error {
	switch fld.Kind() {
	case reflect.String:
		switch v := value.(type) {
		case string:
			fld.SetString(v)
		case time.Time:
			fld.SetString(v.Format(time.RFC3339))
		default:
			fld.SetString(strings.TrimSpace(strings.Trim(fmtAny(v), "\"")))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(value)
		if err != nil {
			return err
		}
		fld.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt64(value)
		if err != nil {
			return err
		}
		fld.SetUint(uint64(n))
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			fld.SetBool(v)
		case string:
			fld.SetBool(v == "1" || strings.EqualFold(v, "true"))
		default:
			n, err := toInt64(value)
			if err != nil {
				return err
			}
			fld.SetBool(n != 0)
		}
	case reflect.Float32, reflect.Float64:
		switch v := value.(type) {
		case float64:
			fld.SetFloat(v)
		case float32:
			fld.SetFloat(float64(v))
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			fld.SetFloat(f)
		default:
			n, err := toInt64(value)
			if err != nil {
				return err
			}
			fld.SetFloat(float64(n))
		}
	case reflect.Struct:
		if fld.Type() != reflect.TypeOf(time.Time{}) {
			return errors.Newf("type %s not handled", fld.Type())
		}
		switch v := value.(type) {
		case time.Time:
			fld.Set(reflect.ValueOf(v))
		case string:
			t, err := ParseTime(v)
			if err != nil {
				return err
			}
			fld.Set(reflect.ValueOf(t))
		default:
			return errors.Newf("cannot set time from %T", value)
		}
	default:
		return errors.Newf("kind %s not handled", fld.Kind())
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parse the time formats drivers and html inputs produce
func ParseTime(s string) (time.Time, error) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("cannot parse time %q", s)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, errors.Newf("cannot convert %T to int", value)
	}
}

func fmtAny(v any) string {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return reflect.ValueOf(v).String()
	}
}
