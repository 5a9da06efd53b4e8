package logger

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Options controls logger construction.
type Options struct {
	Level string // debug | info | warn | error
	File  string // optional path; when set, log lines are also appended there
}

// New builds a logger from the options. There is no package-level instance:
// the composition root constructs one and hands it to each component.
func New(opts Options) (*Logger, error) {
	return newZapLogger(opts)
}
