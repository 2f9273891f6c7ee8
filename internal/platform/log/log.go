/*
 * file: log.go
 * package: log
 * description:
 *     Constructs the single structured logger shared by every component.
 *     Mirrors goldbox-rpg's config-driven logrus setup: one configured
 *     instance built at startup and passed down, never reached for globally
 *     from leaf packages.
 */
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger configured from a textual level name. An
// unrecognized level falls back to info rather than failing startup.
func New(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	return l
}
