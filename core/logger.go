package core

// Logger is any service that can log messages.
// expected args fmt: error, map[string]interface{}, Tenant
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Tenant identifies the school a request acts for. Loggers report it as the affected person.
type Tenant struct {
	SchoolID string
	Subject  string
	Email    string
}
