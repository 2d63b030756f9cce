package probe

import (
	"context"
	"errors"
	"testing"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validatorReturning(v interface{}, err error) func(context.Context, string) (interface{}, error) {
	return func(context.Context, string) (interface{}, error) {
		return v, err
	}
}

func TestDataSourceProbeWithoutDatabaseIsUnknown(t *testing.T) {
	report := NewDataSourceProbe(nil, "MySQL", "").Check()

	assert.Equal(t, health.StatusUp, report.Status())
	assert.Equal(t, []string{"database"}, report.Details().Keys())
	database, _ := report.Detail("database")
	assert.Equal(t, "unknown", database)
}

func TestDataSourceProbeValidationResult(t *testing.T) {
	cases := []struct {
		value  interface{}
		result string
	}{
		{"1", "ok"},
		{int64(1), "ok"},
		{"0", "no"},
		{int64(2), "no"},
		{"one", "no"},
	}

	for _, c := range cases {
		subject := &dataSourceProbe{product: "MySQL", query: defaultValidationQuery, validate: validatorReturning(c.value, nil)}

		report := subject.Check()

		assert.Equal(t, health.StatusUp, report.Status(), "value %v", c.value)
		assert.Equal(t, []string{"database", "result", "timeMs"}, report.Details().Keys())
		result, _ := report.Detail("result")
		database, _ := report.Detail("database")
		assert.Equal(t, c.result, result, "value %v", c.value)
		assert.Equal(t, "MySQL", database)
	}
}

func TestDataSourceProbeDownOnQueryError(t *testing.T) {
	subject := &dataSourceProbe{product: "MySQL", query: defaultValidationQuery, validate: validatorReturning(nil, errors.New("validation query returned 2 rows, expected 1"))}

	report := subject.Check()

	assert.Equal(t, health.StatusDown, report.Status())
	msg, _ := report.Detail("error")
	assert.Equal(t, "validation query returned 2 rows, expected 1", msg)
}

func TestDataSourceProbeUsesConfiguredQuery(t *testing.T) {
	var seen string
	subject := NewDataSourceProbe(nil, "MySQL", "SELECT 1 FROM DUAL")
	subject.validate = func(_ context.Context, query string) (interface{}, error) {
		seen = query
		return "1", nil
	}

	subject.Check()

	assert.Equal(t, "SELECT 1 FROM DUAL", seen)
	assert.Equal(t, defaultValidationQuery, NewDataSourceProbe(nil, "MySQL", "").query)
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(&config.Postgres{
		Credentials: config.Credentials{User: "app", Password: "p@ss"},
		Host:        config.Host{Hostname: "db", Port: "5432"},
		Database:    "orders",
		SSLMode:     "require",
	})

	assert.Equal(t, "postgres://app:p%40ss@db:5432/orders?sslmode=require", dsn)
}

func TestNewPostgresProbeDefaults(t *testing.T) {
	cfg := &config.Postgres{Host: config.Host{Hostname: "db"}, Database: "orders"}

	subject, err := NewPostgresProbe(cfg)
	require.NoError(t, err)

	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, "PostgreSQL", subject.product)
	assert.Equal(t, defaultValidationQuery, subject.query)
	assert.NotNil(t, subject.validate)
}
