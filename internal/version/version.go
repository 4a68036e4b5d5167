// Package version хранит сведения о сборке, проставляемые через -ldflags.
package version

import "fmt"

const serviceName = "waiter-service"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// String возвращает строку с информацией о сборке для логов и health checks.
func String() string {
	return fmt.Sprintf("%s %s (commit=%s, built=%s)", serviceName, version, commit, date)
}

// Short возвращает только номер версии.
func Short() string {
	return version
}
