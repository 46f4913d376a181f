package core

// Logger is any leveled logging service.
// Error/Fatal accept extra args (error, request data, Account) that richer
// implementations may report to an external tracker.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
