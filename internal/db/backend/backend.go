// Package backend picks the storage implementation from DATABASE_URL.
package backend

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/grouppolice/internal/config"
	"github.com/iamwavecut/grouppolice/internal/db"
	"github.com/iamwavecut/grouppolice/internal/db/mongodb"
	"github.com/iamwavecut/grouppolice/internal/db/sqlite"
	"github.com/iamwavecut/grouppolice/internal/infra"
)

const (
	KindMongo  = "mongodb"
	KindSQLite = "sqlite"

	sqliteScheme = "sqlite://"
)

// Target is a parsed DATABASE_URL.
type Target struct {
	Kind string
	// URI for MongoDB, a file path for SQLite.
	Location string
}

func Parse(url string) (Target, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return Target{}, errors.New("empty database url")
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return Target{Kind: KindMongo, Location: url}, nil
	case strings.Contains(url, "://") && !strings.HasPrefix(url, sqliteScheme):
		return Target{}, errors.Errorf("unsupported database url scheme: %s", url[:strings.Index(url, "://")])
	}
	path := strings.TrimPrefix(url, sqliteScheme)
	if path == "" {
		return Target{}, errors.New("empty sqlite path")
	}
	return Target{Kind: KindSQLite, Location: path}, nil
}

// Open connects to the configured store; relative SQLite paths live under DOT_PATH.
func Open(ctx context.Context, cfg config.Config) (db.Client, error) {
	entry := log.WithField("object", "backend").WithField("method", "Open")

	target, err := Parse(cfg.Storage.URL)
	if err != nil {
		return nil, err
	}
	entry = entry.WithField("kind", target.Kind)

	if target.Kind == KindMongo {
		client, err := mongodb.NewMongoClient(ctx, target.Location, cfg.Storage.MongoDatabase)
		if err != nil {
			return nil, errors.WithMessage(err, "open mongodb")
		}
		entry.Info("using mongodb storage")
		return client, nil
	}

	dir, name := filepath.Split(target.Location)
	if !filepath.IsAbs(target.Location) {
		dir = filepath.Join(cfg.DotPath, dir)
	}
	dir, err = infra.WorkDir(dir)
	if err != nil {
		return nil, err
	}
	client, err := sqlite.NewSQLiteClient(ctx, dir, name)
	if err != nil {
		return nil, errors.WithMessage(err, "open sqlite")
	}
	entry.WithField("path", filepath.Join(dir, name)).Info("using sqlite storage")
	return client, nil
}
