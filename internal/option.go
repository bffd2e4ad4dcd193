package internal

import "log/slog"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config        *Config
	workDir       string
	version       string
	logger        *slog.Logger
	defaultAuthor func() string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithWorkDir sets the directory project discovery starts from.
func WithWorkDir(dir string) Option {
	return func(a *application) {
		a.workDir = dir
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogger overrides the logger built from the configured level.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithDefaultAuthor supplies the fallback author lookup (git user.name).
func WithDefaultAuthor(fn func() string) Option {
	return func(a *application) {
		a.defaultAuthor = fn
	}
}
