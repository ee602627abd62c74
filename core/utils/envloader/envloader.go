package envloader

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/kamalshkeir/kadmin/core/utils/logger"
)

// Load sets env vars from the given files, '.env' if none. Variables already
// present in the environment win.
func Load(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			logger.Warn("env file", f, "not found")
			continue
		}
		err := godotenv.Load(f)
		logger.CheckError(err)
	}
}

// FillStruct fill the struct from env using `env` and `envDefault` tags
func FillStruct(structure any) error {
	if err := env.Parse(structure); err != nil {
		return errors.Wrap(err, "env")
	}
	return nil
}
