package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
)

const defaultValidationQuery = "SELECT 1"

type dataSourceProbe struct {
	product  string
	query    string
	validate func(ctx context.Context, query string) (interface{}, error)
}

// NewDataSourceProbe checks db with the given validation query. A nil db
// is reported as UP with an unknown database.
func NewDataSourceProbe(db *sql.DB, product, query string) *dataSourceProbe {
	if query == "" {
		query = defaultValidationQuery
	}

	p := &dataSourceProbe{product: product, query: query}
	if db != nil {
		p.validate = func(ctx context.Context, query string) (interface{}, error) {
			return querySingleValue(ctx, db, query)
		}
	}
	return p
}

func NewMySQLProbe(cfg *config.MySQL) (*dataSourceProbe, error) {
	cfg.User = helper.ResolveEnv(cfg.User)
	cfg.Password = helper.ResolveEnv(cfg.Password)
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Database = helper.ResolveEnv(cfg.Database)
	cfg.Port = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Port), "3306", "port", "mysql")
	cfg.ValidationQuery = helper.ResolveEnv(cfg.ValidationQuery)

	connCfg := mysql.NewConfig()
	connCfg.User = cfg.User
	connCfg.Passwd = cfg.Password
	connCfg.Net = "tcp"
	connCfg.Addr = net.JoinHostPort(cfg.Hostname, cfg.Port)
	connCfg.DBName = cfg.Database
	connCfg.AllowNativePasswords = cfg.AllowNativePassword == nil || *cfg.AllowNativePassword

	// sql.Open only validates the DSN; connections are made lazily.
	db, err := sql.Open("mysql", connCfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mysql data source %s", connCfg.Addr)
	}
	db.SetMaxOpenConns(1)

	return NewDataSourceProbe(db, "MySQL", cfg.ValidationQuery), nil
}

func postgresDSN(cfg *config.Postgres) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Hostname, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}

	q := url.Values{}
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

func NewPostgresProbe(cfg *config.Postgres) (*dataSourceProbe, error) {
	cfg.User = helper.ResolveEnv(cfg.User)
	cfg.Password = helper.ResolveEnv(cfg.Password)
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Database = helper.ResolveEnv(cfg.Database)
	cfg.Port = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Port), "5432", "port", "postgres")
	cfg.SSLMode = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.SSLMode), "disable", "sslMode", "postgres")
	cfg.ValidationQuery = helper.ResolveEnv(cfg.ValidationQuery)

	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open postgres data source %s", net.JoinHostPort(cfg.Hostname, cfg.Port))
	}
	db.SetMaxOpenConns(1)

	return NewDataSourceProbe(db, "PostgreSQL", cfg.ValidationQuery), nil
}

// querySingleValue runs query and requires exactly one row with exactly
// one column.
func querySingleValue(ctx context.Context, db *sql.DB, query string) (interface{}, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		return nil, fmt.Errorf("validation query returned %d columns, expected 1", len(cols))
	}

	var values []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(values) != 1 {
		return nil, fmt.Errorf("validation query returned %d rows, expected 1", len(values))
	}
	return values[0], nil
}

func (d *dataSourceProbe) Check() health.Report {
	return health.Indicate("datasource", func(b *health.Builder) error {
		if d.validate == nil {
			b.Up().WithDetail("database", "unknown")
			return nil
		}

		b.Up().WithDetail("database", d.product)

		outcome := health.TimeValue(func() (interface{}, error) {
			return d.validate(context.Background(), d.query)
		})
		if !outcome.Succeeded() {
			return outcome.Err
		}

		result := "no"
		if fmt.Sprint(outcome.Value) == "1" {
			result = "ok"
		}
		b.WithDetail("result", result)
		b.WithDetail("timeMs", outcome.ElapsedMs())
		return nil
	})
}

var _ Probe = &dataSourceProbe{}
