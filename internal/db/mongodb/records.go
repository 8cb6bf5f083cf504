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

func (c *mongoClient) AddViolation(ctx context.Context, v *db.Violation) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	if _, err := c.db.Collection(collViolations).InsertOne(ctx, v); err != nil {
		return fmt.Errorf("failed to add violation: %w", err)
	}
	return nil
}

func (c *mongoClient) CountViolations(ctx context.Context) (int64, error) {
	return c.db.Collection(collViolations).CountDocuments(ctx, bson.M{})
}

func (c *mongoClient) CountViolationsByKind(ctx context.Context) (map[db.ViolationKind]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$violation_type"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := c.db.Collection(collViolations).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate violations: %w", err)
	}
	var rows []struct {
		Kind db.ViolationKind `bson:"_id"`
		N    int64            `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode violation counts: %w", err)
	}
	res := make(map[db.ViolationKind]int64, len(rows))
	for _, r := range rows {
		res[r.Kind] = r.N
	}
	return res, nil
}

func (c *mongoClient) AddLogEntry(ctx context.Context, entry *db.LogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := c.db.Collection(collLogs).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to add log entry: %w", err)
	}
	return nil
}

func (c *mongoClient) GetKeywords(ctx context.Context, list string) ([]string, error) {
	cur, err := c.db.Collection(collKeywords).Find(ctx,
		bson.M{"list": list},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "word", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get keywords %s: %w", list, err)
	}
	var docs []struct {
		Word string `bson:"word"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode keywords: %w", err)
	}
	words := make([]string, 0, len(docs))
	for _, d := range docs {
		words = append(words, d.Word)
	}
	return words, nil
}

func (c *mongoClient) AddKeywords(ctx context.Context, list string, words []string) (int, error) {
	added := 0
	now := time.Now().UTC()
	for _, w := range db.NormalizeKeywords(words) {
		res, err := c.db.Collection(collKeywords).UpdateOne(ctx,
			bson.M{"list": list, "word": w},
			bson.M{"$setOnInsert": bson.M{"list": list, "word": w, "created_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return added, fmt.Errorf("failed to add keyword: %w", err)
		}
		added += int(res.UpsertedCount)
	}
	return added, nil
}

func (c *mongoClient) RemoveKeywords(ctx context.Context, list string, words []string) (int, error) {
	words = db.NormalizeKeywords(words)
	if len(words) == 0 {
		return 0, nil
	}
	res, err := c.db.Collection(collKeywords).DeleteMany(ctx, bson.M{"list": list, "word": bson.M{"$in": words}})
	if err != nil {
		return 0, fmt.Errorf("failed to remove keywords: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (c *mongoClient) IncrementWarn(ctx context.Context, groupID, userID int64) (int, error) {
	var doc struct {
		Count int `bson:"count"`
	}
	err := c.db.Collection(collWarns).FindOneAndUpdate(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$inc": bson.M{"count": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to increment warns: %w", err)
	}
	return doc.Count, nil
}

func (c *mongoClient) GetWarns(ctx context.Context, groupID, userID int64) (int, error) {
	var doc struct {
		Count int `bson:"count"`
	}
	err := c.db.Collection(collWarns).FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get warns: %w", err)
	}
	return doc.Count, nil
}

func (c *mongoClient) ResetWarns(ctx context.Context, groupID, userID int64) error {
	_, err := c.db.Collection(collWarns).UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"count": 0, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to reset warns: %w", err)
	}
	return nil
}
