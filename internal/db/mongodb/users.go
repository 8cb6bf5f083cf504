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

func (c *mongoClient) UpsertUser(ctx context.Context, user *db.User) error {
	if user.LastSeen.IsZero() {
		user.LastSeen = time.Now().UTC()
	}
	_, err := c.db.Collection(collUsers).UpdateOne(ctx,
		bson.M{"id": user.ID},
		bson.M{"$set": user},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (c *mongoClient) GetUser(ctx context.Context, id int64) (*db.User, error) {
	u := &db.User{}
	if err := c.db.Collection(collUsers).FindOne(ctx, bson.M{"id": id}).Decode(u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return u, nil
}

func (c *mongoClient) CountUsers(ctx context.Context) (int64, error) {
	return c.db.Collection(collUsers).CountDocuments(ctx, bson.M{})
}

func (c *mongoClient) GetBioLinkException(ctx context.Context, userID int64) (bool, error) {
	err := c.db.Collection(collBioLinkExceptions).
		FindOne(ctx, bson.M{"user_id": userID, "has_exception": true}).
		Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get bio link exception for %d: %w", userID, err)
	}
	return true, nil
}

func (c *mongoClient) SetBioLinkException(ctx context.Context, userID int64, allowed bool) error {
	_, err := c.db.Collection(collBioLinkExceptions).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"has_exception": allowed, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set bio link exception for %d: %w", userID, err)
	}
	return nil
}
