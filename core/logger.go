package core

// Logger is the application logger.
// args may hold errors, map[string]interface{} extras and an Actor identifying the caller.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the authenticated caller attached to log entries.
type Actor struct {
	ID    string
	Email string
	Role  string
}
