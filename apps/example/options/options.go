// Package options hold the admin options of the example app
package options

import (
	_ "embed"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/kamalshkeir/kadmin/core/admin"
	"github.com/kamalshkeir/kadmin/core/settings"
	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

//go:embed options.yaml
var embedded []byte

var (
	once sync.Once
	opts *admin.Options
)

// Options return the admin options, loaded on first call from ADMIN_OPTIONS or the embedded file.
// Every call return the same instance.
func Options() *admin.Options {
	once.Do(func() {
		o, err := Load(settings.Config.Admin.Options)
		if err != nil {
			logger.Error("admin options:", err, "using embedded options")
			o, err = Load("")
		}
		if err != nil {
			panic(err)
		}
		opts = o
	})
	return opts
}

// Load read options from path, the embedded file when path is empty
func Load(path string) (*admin.Options, error) {
	data := embedded
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		data = b
	}
	return admin.LoadOptions(data)
}
