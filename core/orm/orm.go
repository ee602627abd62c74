package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils"
	"github.com/kamalshkeir/kadmin/core/utils/encryption/hash"
	"github.com/kamalshkeir/kadmin/core/utils/eventbus"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
	"github.com/kamalshkeir/kadmin/core/utils/safemap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	Debug              = false
	UseCache           = true
	DefaultDB          = ""
	databases          = []*DatabaseEntity{}
	dbMu               sync.RWMutex
	cacheGetAllTables  = safemap.New[string, []string]()
	cacheGetAllColumns = safemap.New[string, map[string]string]()
	cachesOneM         = safemap.New[dbCache, map[string]any]()
	cachesAllM         = safemap.New[dbCache, []map[string]any]()
	cacheOnce          sync.Once
)

var (
	ErrNoData           = errors.New("no data found")
	ErrDatabaseNotFound = errors.New("database not found")
)

const CACHE_TOPIC = "internal-db-cache"

const (
	SQLITE    = "sqlite"
	POSTGRES  = "postgres"
	MYSQL     = "mysql"
	MARIA     = "maria"
	COCKROACH = "cockroach"
)

type TableEntity struct {
	Pk         string
	Name       string
	Columns    []string
	Types      map[string]string
	ModelTypes map[string]string
	Tags       map[string][]string
}

type DatabaseEntity struct {
	Name    string
	Conn    *sql.DB
	Dialect string
	Tables  []TableEntity
}

type dbCache struct {
	database   string
	table      string
	selected   string
	orderBys   string
	whereQuery string
	limit      int
	page       int
	args       string
}

// InitDB open the database described by settings.Config.Db and register it as default
func InitDB() error {
	cfg := settings.Config.Db
	if cfg.DSN == "" {
		cfg.Type = SQLITE
		if cfg.Name == "" {
			cfg.Name = "db"
		}
	}
	settings.Config.Db.Type = cfg.Type
	settings.Config.Db.Name = cfg.Name
	err := NewDatabaseFromDSN(cfg.Type, cfg.Name, cfg.DSN)
	if err != nil {
		return err
	}
	DefaultDB = cfg.Name
	return nil
}

// NewDatabaseFromDSN open and register a database
func NewDatabaseFromDSN(dbType, dbName string, dbDSN ...string) error {
	dsn := ""
	if len(dbDSN) > 0 {
		dsn = dbDSN[0]
	}
	dialect, driverDSN, err := buildDSN(dbType, dbName, dsn)
	if err != nil {
		return err
	}
	driver := dialect
	if dialect == MARIA {
		driver = MYSQL
	}
	conn, err := sql.Open(driver, driverDSN)
	if err != nil {
		return errors.Wrapf(err, "open %s", dbName)
	}
	if err := register(dialect, dbName, conn); err != nil {
		_ = conn.Close()
		return err
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(10 * time.Second)
	return nil
}

// NewDatabaseFromConnection register an already opened connection under dbName
func NewDatabaseFromConnection(dbType, dbName string, conn *sql.DB) error {
	dialect, _, err := buildDSN(dbType, dbName, "-")
	if err != nil {
		return err
	}
	return register(dialect, dbName, conn)
}

func register(dialect, dbName string, conn *sql.DB) error {
	if err := conn.Ping(); err != nil {
		return errors.Wrapf(err, "ping %s", dbName)
	}
	if dialect == SQLITE {
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return err
		}
	}
	dbMu.Lock()
	defer dbMu.Unlock()
	for _, dbb := range databases {
		if dbb.Name == dbName {
			return errors.Newf("another database with the name %q already registered", dbName)
		}
	}
	databases = append(databases, &DatabaseEntity{
		Name:    dbName,
		Conn:    conn,
		Dialect: dialect,
	})
	if DefaultDB == "" {
		DefaultDB = dbName
	}
	cacheOnce.Do(func() {
		eventbus.Subscribe(CACHE_TOPIC, handleCache)
		go utils.RunEvery(context.Background(), 10*time.Minute, func() {
			eventbus.Publish(CACHE_TOPIC, map[string]string{"type": "clean"})
		})
	})
	return nil
}

func buildDSN(dbType, dbName, dsn string) (dialect string, driverDSN string, err error) {
	if strings.HasPrefix(dbType, COCKROACH) {
		dbType = POSTGRES
	}
	switch dbType {
	case POSTGRES:
		if dsn == "" {
			return "", "", errors.New("dsn for postgres cannot be empty")
		}
		return POSTGRES, fmt.Sprintf("postgres://%s/%s?sslmode=disable", dsn, dbName), nil
	case MYSQL, MARIA, "mariadb":
		if dsn == "" {
			return "", "", errors.New("dsn for mysql cannot be empty")
		}
		dialect = MYSQL
		if dbType != MYSQL {
			dialect = MARIA
		}
		if strings.Contains(dsn, "tcp(") {
			return dialect, dsn + "/" + dbName, nil
		}
		split := strings.Split(dsn, "@")
		if len(split) != 2 {
			return "", "", errors.New("dsn for mysql should be user:pass@host:port")
		}
		return dialect, split[0] + "@tcp(" + split[1] + ")/" + dbName, nil
	case SQLITE, "sqlite3", "":
		if strings.HasSuffix(dbName, ".sqlite") || strings.HasPrefix(dbName, "file:") || dbName == ":memory:" {
			return SQLITE, dbName, nil
		}
		return SQLITE, dbName + ".sqlite", nil
	default:
		return "", "", errors.Newf("dialect %q not handled, choices are: sqlite, postgres, mysql, maria", dbType)
	}
}

// DisableCache disable the cache system
func DisableCache() {
	UseCache = false
}

// FlushCache empty every cache
func FlushCache() {
	handleCache(map[string]string{"type": "clean"})
}

// GetConnection return the connection of dbName, default database if empty
func GetConnection(dbName ...string) *sql.DB {
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if err != nil {
		return nil
	}
	return db.Conn
}

// GetMemoryDatabases return registered databases
func GetMemoryDatabases() []*DatabaseEntity {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return append([]*DatabaseEntity{}, databases...)
}

// GetMemoryDatabase return the default database if dbName "" or "default" else the matched db
func GetMemoryDatabase(dbName string) (*DatabaseEntity, error) {
	dbMu.RLock()
	defer dbMu.RUnlock()
	if dbName == "" || dbName == "default" {
		dbName = DefaultDB
	}
	for _, d := range databases {
		if d.Name == dbName {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrDatabaseNotFound, "%q", dbName)
}

// GetMemoryTable return the table migrated by this process
func GetMemoryTable(tbName string, dbName ...string) (TableEntity, error) {
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if err != nil {
		return TableEntity{}, err
	}
	dbMu.RLock()
	defer dbMu.RUnlock()
	for _, t := range db.Tables {
		if t.Name == tbName {
			return t, nil
		}
	}
	return TableEntity{}, errors.Newf("table %q not found", tbName)
}

// GetAllTables list tables of dbName
func GetAllTables(dbName ...string) []string {
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if logger.CheckError(err) {
		return nil
	}
	if UseCache {
		if v, ok := cacheGetAllTables.Get(db.Name); ok {
			return v
		}
	}

	var statement string
	switch db.Dialect {
	case POSTGRES:
		statement = `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname NOT IN ('pg_catalog','information_schema','crdb_internal','pg_extension') ORDER BY tablename`
	case MYSQL, MARIA:
		statement = "SELECT table_name FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND table_schema = '" + db.Name + "' ORDER BY table_name"
	default:
		statement = `SELECT name FROM sqlite_schema WHERE type ='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}
	rows, err := db.Conn.Query(statement)
	if logger.CheckError(err) {
		return nil
	}
	defer rows.Close()
	tables := []string{}
	for rows.Next() {
		var table string
		if logger.CheckError(rows.Scan(&table)) {
			return nil
		}
		tables = append(tables, table)
	}
	if UseCache {
		cacheGetAllTables.Set(db.Name, tables)
	}
	return tables
}

// GetAllColumnsTypes return column name -> sql type of table
func GetAllColumnsTypes(table string, dbName ...string) map[string]string {
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if logger.CheckError(err) {
		return nil
	}
	if UseCache {
		if v, ok := cacheGetAllColumns.Get(db.Name + "-" + table); ok {
			return v
		}
	}

	columns := map[string]string{}
	switch db.Dialect {
	case POSTGRES, MYSQL, MARIA:
		statement := "SELECT column_name,data_type FROM information_schema.columns WHERE table_name = ?"
		args := []any{table}
		if db.Dialect != POSTGRES {
			statement += " AND TABLE_SCHEMA = ?"
			args = append(args, db.Name)
		}
		adaptPlaceholdersToDialect(&statement, db.Dialect)
		rows, err := db.Conn.Query(statement, args...)
		if logger.CheckError(err) {
			return nil
		}
		defer rows.Close()
		for rows.Next() {
			var colName, colType string
			if logger.CheckError(rows.Scan(&colName, &colType)) {
				return nil
			}
			columns[colName] = colType
		}
	default:
		rows, err := db.Conn.Query("PRAGMA table_info(" + quoteIdent(table) + ")")
		if logger.CheckError(err) {
			return nil
		}
		defer rows.Close()
		var (
			num              int
			colName, colType string
			notnull, pk      int
			dflt             any
		)
		for rows.Next() {
			if logger.CheckError(rows.Scan(&num, &colName, &colType, &notnull, &dflt, &pk)) {
				return nil
			}
			columns[colName] = colType
		}
	}
	if UseCache {
		cacheGetAllColumns.Set(db.Name+"-"+table, columns)
	}
	return columns
}

// GetPrimaryKey return the primary key column of table, "id" when unknown
func GetPrimaryKey(table string, dbName ...string) string {
	if t, err := GetMemoryTable(table, dbName...); err == nil && t.Pk != "" {
		return t.Pk
	}
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	db, err := GetMemoryDatabase(name)
	if err != nil || db.Dialect != SQLITE {
		return "id"
	}
	rows, err := db.Conn.Query("PRAGMA table_info(" + quoteIdent(table) + ")")
	if err != nil {
		return "id"
	}
	defer rows.Close()
	var (
		num              int
		colName, colType string
		notnull, pk      int
		dflt             any
	)
	for rows.Next() {
		if rows.Scan(&num, &colName, &colType, &notnull, &dflt, &pk) == nil && pk == 1 {
			return colName
		}
	}
	return "id"
}

// CreateUser insert a user with a hashed password
func CreateUser(email, password string, isAdmin bool, dbName ...string) error {
	if email == "" || password == "" {
		return errors.New("email and password cannot be empty")
	}
	uuid, err := utils.GenerateUUID()
	if err != nil {
		return err
	}
	hashed, err := hash.GenerateHash(password)
	if err != nil {
		return err
	}
	name := ""
	if len(dbName) > 0 {
		name = dbName[0]
	}
	admin := 0
	if isAdmin {
		admin = 1
	}
	_, err = Table("users").Database(name).Insert(
		"uuid,email,password,is_admin",
		[]any{uuid, email, hashed, admin},
	)
	return err
}

// ShutdownDatabases close the given databases, all if none given
func ShutdownDatabases(databasesName ...string) error {
	dbMu.Lock()
	defer dbMu.Unlock()
	var errs error
	kept := databases[:0]
	for _, db := range databases {
		if len(databasesName) > 0 && !utils.SliceContains(databasesName, db.Name) {
			kept = append(kept, db)
			continue
		}
		if err := db.Conn.Close(); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
		if db.Name == DefaultDB {
			DefaultDB = ""
		}
	}
	databases = kept
	handleCache(map[string]string{"type": "clean"})
	return errs
}

func handleCache(data map[string]string) {
	switch data["type"] {
	case "create", "delete", "update":
		cachesAllM.Flush()
		cachesOneM.Flush()
	case "drop", "migrate", "clean":
		cacheGetAllColumns.Flush()
		cacheGetAllTables.Flush()
		cachesAllM.Flush()
		cachesOneM.Flush()
	default:
		logger.Info("CACHE DB: default case triggered", data)
	}
}

// invalidate flush local caches now and notify other subscribers
func invalidate(kind, table, database string) {
	if !UseCache {
		return
	}
	data := map[string]string{
		"type":     kind,
		"table":    table,
		"database": database,
	}
	handleCache(data)
	eventbus.Publish(CACHE_TOPIC, data)
}
