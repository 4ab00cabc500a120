package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	source string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithSource overrides the configured export path.
func WithSource(path string) Option {
	return func(a *application) {
		a.source = path
	}
}
