package probe

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/internal/helper"
	"github.com/mittwald/mittprobe/pkg/health"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoCollection = "request_log"

type mongoCollaborator interface {
	Count(ctx context.Context, collection string) (int64, error)
	BuildInfo(ctx context.Context) (string, error)
}

type mongoDatabase struct {
	db *mongo.Database
}

func (m mongoDatabase) Count(ctx context.Context, collection string) (int64, error) {
	return m.db.Collection(collection).CountDocuments(ctx, bson.D{})
}

func (m mongoDatabase) BuildInfo(ctx context.Context) (string, error) {
	var info struct {
		Version string `bson:"version"`
	}
	if err := m.db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info); err != nil {
		return "", err
	}
	return info.Version, nil
}

type mongoDBProbe struct {
	db         mongoCollaborator
	collection string
}

// NewMongoDBProbeForDatabase wraps an already connected database handle.
func NewMongoDBProbeForDatabase(db *mongo.Database, collection string) *mongoDBProbe {
	if collection == "" {
		collection = defaultMongoCollection
	}
	p := &mongoDBProbe{collection: collection}
	if db != nil {
		p.db = mongoDatabase{db}
	}
	return p
}

func NewMongoDBProbe(cfg *config.MongoDB) (*mongoDBProbe, error) {
	cfg.User = helper.ResolveEnv(cfg.User)
	cfg.Password = helper.ResolveEnv(cfg.Password)
	cfg.Hostname = helper.ResolveEnv(cfg.Hostname)
	cfg.Database = helper.ResolveEnv(cfg.Database)
	cfg.URL = helper.ResolveEnv(cfg.URL)
	cfg.Collection = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Collection), defaultMongoCollection, "collection", "mongodb")

	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb probe requires a database")
	}

	timeout, err := helper.ParseDurationOrDefault(cfg.Timeout, "5s", "timeout", "mongodb")
	if err != nil {
		return nil, err
	}

	uri := cfg.URL
	if uri == "" {
		cfg.Port = helper.SetDefaultStringIfEmpty(helper.ResolveEnv(cfg.Port), "27017", "port", "mongodb")
		u := url.URL{
			Scheme: "mongodb",
			Host:   net.JoinHostPort(cfg.Hostname, cfg.Port),
			Path:   "/" + cfg.Database,
		}
		if cfg.User != "" && cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		uri = u.String()
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout).
		SetSocketTimeout(timeout)

	// Connect does not wait for the server; unreachable hosts surface on the first check.
	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create mongodb client for %s", cfg.Hostname)
	}

	return NewMongoDBProbeForDatabase(client.Database(cfg.Database), cfg.Collection), nil
}

func (m *mongoDBProbe) Check() health.Report {
	return health.Indicate("mongodb", func(b *health.Builder) error {
		if m.db == nil {
			b.Up().WithDetail("database", "unknown")
			return nil
		}

		ctx := context.Background()

		outcome := health.TimeValue(func() (int64, error) {
			return m.db.Count(ctx, m.collection)
		})
		if !outcome.Succeeded() {
			b.WithDetail("timeMs", outcome.ElapsedMs())
			return outcome.Err
		}

		result := "no"
		if outcome.Value >= 0 {
			result = "yes"
		}
		b.WithDetail("result", result)
		b.WithDetail("timeMs", outcome.ElapsedMs())

		version, err := m.db.BuildInfo(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to fetch server build info")
		}
		b.WithDetail("version", version)

		b.Up()
		return nil
	})
}

var _ Probe = &mongoDBProbe{}
