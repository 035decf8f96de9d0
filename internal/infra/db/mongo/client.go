package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the lookup indexes the repositories query by.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	window := bson.D{{Key: "listing_id", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}}
	specs := map[string][]mongo.IndexModel{
		colSlots:    {{Keys: window}},
		colBlocks:   {{Keys: window}},
		colBookings: {{Keys: window}, {Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}}, {Keys: bson.D{{Key: "guest_id", Value: 1}}}},
		colOptions:  {{Keys: bson.D{{Key: "listing_id", Value: 1}}}},
		colSpecials: {{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "option_id", Value: 1}, {Key: "kind", Value: 1}}}},
		colDayFlags: {{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)}},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
