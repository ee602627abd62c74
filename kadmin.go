package kadmin

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/admin/models"
	"github.com/kamalshkeir/kadmin/core/kamux"
	"github.com/kamalshkeir/kadmin/core/orm"
	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/shell"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

// New load env files into settings, open the default database and return a router with the default middlewares.
// Shell commands given on the command line are run and the process exit.
func New(envFiles ...string) (*kamux.Router, error) {
	app := kamux.New()
	app.LoadEnv(envFiles...)
	logger.SetLevel(settings.Config.LogLevel)

	if err := orm.InitDB(); err != nil {
		return nil, errors.Wrap(err, "init database")
	}
	if err := orm.AutoMigrate[models.User]("users"); err != nil {
		return nil, errors.Wrap(err, "migrate users")
	}
	if shell.InitShell() {
		_ = orm.ShutdownDatabases()
		logger.Sync()
		os.Exit(0)
	}

	// last is outermost
	app.UseMiddlewares(kamux.GZIP, kamux.LATENCY)
	if settings.Config.Logs {
		app.UseMiddlewares(kamux.LOGS)
	}
	app.UseMiddlewares(kamux.RECOVERY)
	return app, nil
}
