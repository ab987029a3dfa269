// internal/config/database.go
package config

import (
	"fmt"
	"net/url"
)

// DSN builds the keyword/value connection string for lib/pq-compatible
// drivers. The password is quoted since it may contain spaces.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password='%s' dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// URL renders the same settings as a postgres:// URL for tools that
// expect one (migration CLIs, psql).
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password),
		d.Host, d.Port, d.Database, d.SSLMode,
	)
}
