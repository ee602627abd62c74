package orm

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

type migrationInput struct {
	dialect string
	fName   string
	fType   string
	fTags   []string
	fKeys   *[]string
	pk      *string
}

// AutoMigrate create tableName from T if missing and link T to it
func AutoMigrate[T any](tableName string, dbName ...string) error {
	if !IsIdentifier(tableName) {
		return errors.Newf("invalid table name %q", tableName)
	}
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if err != nil {
		return err
	}
	LinkModel[T](tableName)

	entity, statement, err := migrationStatement[T](db.Dialect, tableName)
	if err != nil {
		return err
	}
	dbMu.Lock()
	found := false
	for i, t := range db.Tables {
		if t.Name == tableName {
			db.Tables[i] = entity
			found = true
		}
	}
	if !found {
		db.Tables = append(db.Tables, entity)
	}
	dbMu.Unlock()

	if utils.SliceContains(GetAllTables(db.Name), tableName) {
		return nil
	}
	if Debug {
		logger.Debug("statement:", statement)
	}
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.Conn.ExecContext(c, statement); err != nil {
		return errors.Wrapf(err, "migrate %s", tableName)
	}
	invalidate("migrate", tableName, db.Name)
	logger.Printfs("gr%s migrated successfully", tableName)
	return nil
}

func migrationStatement[T any](dialect, tableName string) (TableEntity, string, error) {
	s := reflect.ValueOf(new(T)).Elem()
	typeOfT := s.Type()
	if typeOfT.Kind() != reflect.Struct {
		return TableEntity{}, "", errors.Newf("%s is not a struct", typeOfT)
	}
	entity := TableEntity{
		Name:       tableName,
		Types:      map[string]string{},
		ModelTypes: map[string]string{},
		Tags:       map[string][]string{},
	}
	defs := []string{}
	fkeys := []string{}
	for i := 0; i < s.NumField(); i++ {
		sf := typeOfT.Field(i)
		if !sf.IsExported() {
			continue
		}
		fname := ToSnakeCase(sf.Name)
		tags := []string{}
		if ftag, ok := sf.Tag.Lookup("orm"); ok {
			for _, t := range strings.Split(ftag, ";") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}
		if hasTag(tags, "-") {
			continue
		}
		mi := &migrationInput{
			dialect: dialect,
			fName:   fname,
			fType:   sf.Type.Name(),
			fTags:   tags,
			fKeys:   &fkeys,
			pk:      &entity.Pk,
		}
		var def string
		switch sf.Type.Kind() {
		case reflect.Int, reflect.Int64, reflect.Int32, reflect.Uint, reflect.Uint64, reflect.Uint32:
			def = handleMigrationInt(mi)
		case reflect.Bool:
			def = handleMigrationBool(mi)
		case reflect.String:
			def = handleMigrationString(mi)
		case reflect.Float32, reflect.Float64:
			def = handleMigrationFloat(mi)
		default:
			if sf.Type != reflect.TypeOf(time.Time{}) {
				logger.Error(fname, "of type", sf.Type, "not handled")
				continue
			}
			def = handleMigrationTime(mi)
		}
		entity.Columns = append(entity.Columns, fname)
		entity.ModelTypes[fname] = mi.fType
		entity.Types[fname] = strings.Fields(def)[0]
		entity.Tags[fname] = tags
		defs = append(defs, fname+" "+def)
	}
	if len(defs) == 0 {
		return entity, "", errors.Newf("%s has no migratable field", typeOfT)
	}
	defs = append(defs, fkeys...)
	st := "CREATE TABLE IF NOT EXISTS " + tableName + " (" + strings.Join(defs, ", ") + ")"
	return entity, st, nil
}

func commonTags(mi *migrationInput, def *strings.Builder) {
	for _, tag := range mi.fTags {
		switch {
		case tag == "unique", tag == "iunique":
			def.WriteString(" UNIQUE")
		case tag == "notnull":
			def.WriteString(" NOT NULL")
		case strings.HasPrefix(tag, "default:"):
			def.WriteString(" DEFAULT " + strings.TrimPrefix(tag, "default:"))
		case strings.HasPrefix(tag, "fk:"):
			// fk:users.id:cascade
			parts := strings.Split(strings.TrimPrefix(tag, "fk:"), ":")
			ref := strings.Split(parts[0], ".")
			if len(ref) != 2 {
				logger.Error("bad foreign key tag", tag)
				continue
			}
			fk := "FOREIGN KEY (" + mi.fName + ") REFERENCES " + ref[0] + "(" + ref[1] + ")"
			if len(parts) > 1 {
				switch parts[1] {
				case "cascade":
					fk += " ON DELETE CASCADE"
				case "setnull":
					fk += " ON DELETE SET NULL"
				}
			}
			*mi.fKeys = append(*mi.fKeys, fk)
		}
	}
}

func handleMigrationInt(mi *migrationInput) string {
	def := strings.Builder{}
	if hasTag(mi.fTags, "pk") || hasTag(mi.fTags, "autoinc") {
		*mi.pk = mi.fName
		switch mi.dialect {
		case POSTGRES:
			return "SERIAL PRIMARY KEY"
		case MYSQL, MARIA:
			return "INT NOT NULL PRIMARY KEY AUTO_INCREMENT"
		default:
			return "INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT"
		}
	}
	if mi.dialect == MYSQL || mi.dialect == MARIA {
		def.WriteString("INT")
	} else {
		def.WriteString("INTEGER")
	}
	commonTags(mi, &def)
	return def.String()
}

func handleMigrationBool(mi *migrationInput) string {
	def := strings.Builder{}
	def.WriteString("INTEGER NOT NULL")
	if !hasDefault(mi.fTags) {
		def.WriteString(" DEFAULT 0")
	}
	def.WriteString(" CHECK (" + mi.fName + " IN (0, 1))")
	commonTags(mi, &def)
	return def.String()
}

func handleMigrationString(mi *migrationInput) string {
	def := strings.Builder{}
	size := ""
	for _, tag := range mi.fTags {
		if strings.HasPrefix(tag, "size:") {
			size = strings.TrimPrefix(tag, "size:")
		}
	}
	switch {
	case hasTag(mi.fTags, "text"):
		def.WriteString("TEXT")
	case size != "":
		def.WriteString("VARCHAR(" + size + ")")
	case mi.dialect == MYSQL || mi.dialect == MARIA:
		def.WriteString("VARCHAR(255)")
	default:
		def.WriteString("TEXT")
	}
	if hasTag(mi.fTags, "pk") {
		*mi.pk = mi.fName
		def.WriteString(" NOT NULL PRIMARY KEY")
	}
	commonTags(mi, &def)
	return def.String()
}

func handleMigrationFloat(mi *migrationInput) string {
	def := strings.Builder{}
	switch mi.dialect {
	case POSTGRES:
		def.WriteString("DOUBLE PRECISION")
	case MYSQL, MARIA:
		def.WriteString("DOUBLE")
	default:
		def.WriteString("REAL")
	}
	commonTags(mi, &def)
	return def.String()
}

func handleMigrationTime(mi *migrationInput) string {
	def := strings.Builder{}
	def.WriteString("TIMESTAMP")
	if hasTag(mi.fTags, "now") {
		def.WriteString(" NOT NULL DEFAULT CURRENT_TIMESTAMP")
	}
	commonTags(mi, &def)
	return def.String()
}

func hasDefault(tags []string) bool {
	for _, t := range tags {
		if strings.HasPrefix(t, "default:") {
			return true
		}
	}
	return false
}
