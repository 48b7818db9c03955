package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/gtd_catalog/internal/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(&config.DatabaseConfig{
		Host: "db", Port: "5432", User: "cat@log", Password: "p@ss word", Name: "catalog", SSLMode: "disable",
	})
	assert.Equal(t, "postgres://cat%40log:p%40ss+word@db:5432/catalog?sslmode=disable", dsn)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, backoff(1))
	assert.Equal(t, time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(4))
	assert.Equal(t, maxDelay, backoff(5))
}

func TestConnectNilConfig(t *testing.T) {
	_, err := Connect(nil)
	assert.Error(t, err)
}
