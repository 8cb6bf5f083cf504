package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iamwavecut/grouppolice/internal/db"
)

func (c *mongoClient) UpsertGroup(ctx context.Context, id int64, name string, addedBy int64) (*db.Group, error) {
	def := db.DefaultGroup(id, name, addedBy)

	set := bson.M{"updated_at": def.UpdatedAt}
	setOnInsert := bson.M{
		"id":              id,
		"welcome_message": "",
		"added_by":        addedBy,
		"created_at":      def.CreatedAt,
	}
	for _, t := range db.Toggles {
		setOnInsert[string(t)] = def.Enabled(t)
	}
	if name != "" {
		set["name"] = name
	} else {
		setOnInsert["name"] = ""
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := c.db.Collection(collGroups).FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		opts,
	)
	g := &db.Group{}
	if err := res.Decode(g); err != nil {
		return nil, fmt.Errorf("failed to upsert group %d: %w", id, err)
	}
	return g, nil
}

func (c *mongoClient) GetGroup(ctx context.Context, id int64) (*db.Group, error) {
	g := &db.Group{}
	err := c.db.Collection(collGroups).FindOne(ctx, bson.M{"id": id}).Decode(g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return g, nil
}

func (c *mongoClient) ListGroups(ctx context.Context) ([]*db.Group, error) {
	cur, err := c.db.Collection(collGroups).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	var groups []*db.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	return groups, nil
}

func (c *mongoClient) CountGroups(ctx context.Context) (int64, error) {
	return c.db.Collection(collGroups).CountDocuments(ctx, bson.M{})
}

func (c *mongoClient) SetGroupToggle(ctx context.Context, id int64, toggle db.Toggle, value bool) error {
	if !toggle.Valid() {
		return db.ErrUnknownToggle
	}
	return c.updateGroup(ctx, id, bson.M{string(toggle): value})
}

func (c *mongoClient) SetWelcomeMessage(ctx context.Context, id int64, text string) error {
	return c.updateGroup(ctx, id, bson.M{"welcome_message": text})
}

func (c *mongoClient) updateGroup(ctx context.Context, id int64, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := c.db.Collection(collGroups).UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update group %d: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}
