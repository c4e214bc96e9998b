package localdb

import "trajet.transportbi.org/internal/appconf"

type Config struct {
	DBPath  string
	Env     appconf.Environment
	Verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Env:     env,
		Verbose: verbose,
	}
}
