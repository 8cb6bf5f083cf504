package mongodb

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/iamwavecut/grouppolice/internal/db"
)

func TestGetGroup(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.groups", mtest.FirstBatch, bson.D{
			{Key: "id", Value: int64(-1001)},
			{Key: "name", Value: "Chat"},
			{Key: "bot_enabled", Value: true},
			{Key: "filter_links", Value: false},
		}))

		g, err := c.GetGroup(context.Background(), -1001)
		if err != nil {
			mt.Fatalf("GetGroup: %v", err)
		}
		if g == nil || g.ID != -1001 || g.Name != "Chat" {
			mt.Fatalf("unexpected group: %+v", g)
		}
		if !g.Enabled(db.ToggleBotEnabled) || g.Enabled(db.ToggleFilterLinks) {
			mt.Fatalf("unexpected toggles: %+v", g)
		}
	})

	mt.Run("absent", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.groups", mtest.FirstBatch))

		g, err := c.GetGroup(context.Background(), -1001)
		if err != nil {
			mt.Fatalf("GetGroup: %v", err)
		}
		if g != nil {
			mt.Fatalf("expected nil group, got %+v", g)
		}
	})
}

func TestUpsertGroupReturnsStoredDocument(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "id", Value: int64(-1001)},
			{Key: "name", Value: "Chat"},
			{Key: "bot_enabled", Value: true},
			{Key: "filter_spam", Value: false},
			{Key: "added_by", Value: int64(7)},
		}}))

		g, err := c.UpsertGroup(context.Background(), -1001, "", 7)
		if err != nil {
			mt.Fatalf("UpsertGroup: %v", err)
		}
		if g.Name != "Chat" || g.Enabled(db.ToggleFilterSpam) || g.AddedBy != 7 {
			mt.Fatalf("unexpected group: %+v", g)
		}
	})
}

func TestSetGroupToggle(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unknown toggle", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		if err := c.SetGroupToggle(context.Background(), 1, db.Toggle("nope"), true); err != db.ErrUnknownToggle {
			mt.Fatalf("expected ErrUnknownToggle, got %v", err)
		}
	})

	mt.Run("missing group", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		if err := c.SetGroupToggle(context.Background(), 1, db.ToggleFilterSpam, false); err != db.ErrNotFound {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("updated", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		if err := c.SetGroupToggle(context.Background(), 1, db.ToggleFilterSpam, false); err != nil {
			mt.Fatalf("SetGroupToggle: %v", err)
		}
	})
}

func TestIncrementWarn(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns new count", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "group_id", Value: int64(-1)},
			{Key: "user_id", Value: int64(2)},
			{Key: "count", Value: 3},
		}}))

		n, err := c.IncrementWarn(context.Background(), -1, 2)
		if err != nil {
			mt.Fatalf("IncrementWarn: %v", err)
		}
		if n != 3 {
			mt.Fatalf("expected 3, got %d", n)
		}
	})
}

func TestCountViolationsByKind(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("aggregate", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.violations", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "spam"}, {Key: "n", Value: int64(4)}},
			bson.D{{Key: "_id", Value: "link"}, {Key: "n", Value: int64(1)}},
		))

		counts, err := c.CountViolationsByKind(context.Background())
		if err != nil {
			mt.Fatalf("CountViolationsByKind: %v", err)
		}
		if counts[db.ViolationSpam] != 4 || counts[db.ViolationLink] != 1 {
			mt.Fatalf("unexpected counts: %v", counts)
		}
	})
}

func TestBioLinkException(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("present", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.biolink_exceptions", mtest.FirstBatch, bson.D{
			{Key: "user_id", Value: int64(9)},
			{Key: "has_exception", Value: true},
		}))
		ok, err := c.GetBioLinkException(context.Background(), 9)
		if err != nil || !ok {
			mt.Fatalf("expected exception, got %v %v", ok, err)
		}
	})

	mt.Run("absent", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.biolink_exceptions", mtest.FirstBatch))
		ok, err := c.GetBioLinkException(context.Background(), 9)
		if err != nil || ok {
			mt.Fatalf("expected no exception, got %v %v", ok, err)
		}
	})
}

func TestRemoveKeywordsEmptyIsNoop(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("noop", func(mt *mtest.T) {
		c := newWithDatabase(mt.DB)
		n, err := c.RemoveKeywords(context.Background(), db.KeywordListAbusive, []string{"  ", ""})
		if err != nil || n != 0 {
			mt.Fatalf("expected 0, nil; got %d, %v", n, err)
		}
	})
}
