// Package config loads the runtime configuration from environment
// variables, optionally seeded from a .env file.
package config // import "jobimporter.app/internal/config"

// Opts holds parsed configuration options.
var Opts *Options

// Load loads configuration values from a local file (if filename isn't
// empty) and from environment variables after that.
func Load(filename string) (err error) {
	p := NewParser()
	if filename != "" {
		Opts, err = p.ParseEnvFile(filename)
		return
	}
	Opts, err = p.ParseEnvironmentVariables()
	return
}
