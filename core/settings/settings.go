package settings

var Config = &GlobalConfig{}
var Secret string

type GlobalConfig struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"9313"`
	Db   struct {
		Name string `env:"DB_NAME" envDefault:"db"`
		Type string `env:"DB_TYPE" envDefault:"sqlite"`
		DSN  string `env:"DB_DSN"`
	}
	Admin struct {
		// Auth is "static" for the placeholder user or "session" for cookie sessions.
		Auth    string `env:"ADMIN_AUTH" envDefault:"static"`
		Options string `env:"ADMIN_OPTIONS"`
	}
	Secret     string `env:"SECRET"`
	Logs       bool   `env:"LOGS" envDefault:"false"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Monitoring bool   `env:"MONITORING" envDefault:"false"`
	Cert       string `env:"CERT"`
	Key        string `env:"KEY"`
}
