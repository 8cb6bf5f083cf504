package mongodb

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/iamwavecut/grouppolice/internal/db"
)

const (
	collGroups            = "groups"
	collUsers             = "users"
	collViolations        = "violations"
	collLogs              = "logs"
	collKeywords          = "keywords"
	collBioLinkExceptions = "biolink_exceptions"
	collWarns             = "warns"

	connectTimeout = 10 * time.Second
)

var _ db.Client = (*mongoClient)(nil)

type mongoClient struct {
	db *mongo.Database
}

// NewMongoClient connects, pings the primary and makes sure indexes exist.
func NewMongoClient(ctx context.Context, uri, database string) (*mongoClient, error) {
	entry := log.WithField("object", "mongoClient").WithField("method", "NewMongoClient")

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	c := &mongoClient{db: client.Database(database)}
	if err := c.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	entry.WithField("database", database).Info("connected to mongodb")
	return c, nil
}

func newWithDatabase(database *mongo.Database) *mongoClient {
	return &mongoClient{db: database}
}

func (c *mongoClient) ensureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	indexes := map[string][]mongo.IndexModel{
		collGroups:            {unique(bson.D{{Key: "id", Value: 1}})},
		collUsers:             {unique(bson.D{{Key: "id", Value: 1}})},
		collBioLinkExceptions: {unique(bson.D{{Key: "user_id", Value: 1}})},
		collKeywords:          {unique(bson.D{{Key: "list", Value: 1}, {Key: "word", Value: 1}})},
		collWarns:             {unique(bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}})},
		collViolations: {
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "violation_type", Value: 1}}},
		},
		collLogs: {{Keys: bson.D{{Key: "type", Value: 1}}}},
	}
	for coll, models := range indexes {
		if _, err := c.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (c *mongoClient) Ping(ctx context.Context) error {
	return c.db.Client().Ping(ctx, readpref.Primary())
}

func (c *mongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.db.Client().Disconnect(ctx)
}
