package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/domain"
)

type mongoMessageRepo struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository creates a message repository backed by the
// messages collection.
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepo{coll: db.Collection(messagesCollection)}
}

func (r *mongoMessageRepo) Insert(ctx context.Context, msg *domain.Message) error {
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func conversationFilter(a, b string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"sender_id": a, "recipient_id": b},
			bson.M{"sender_id": b, "recipient_id": a},
		},
	}
}

func (r *mongoMessageRepo) ListConversation(ctx context.Context, a, b string, limit int64, before time.Time) ([]*domain.Message, error) {
	filter := conversationFilter(a, b)
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*domain.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

func (r *mongoMessageRepo) ListPartners(ctx context.Context, identity string) ([]string, error) {
	sent, err := r.coll.Distinct(ctx, "recipient_id", bson.M{"sender_id": identity})
	if err != nil {
		return nil, fmt.Errorf("failed to list sent partners: %w", err)
	}
	received, err := r.coll.Distinct(ctx, "sender_id", bson.M{"recipient_id": identity})
	if err != nil {
		return nil, fmt.Errorf("failed to list received partners: %w", err)
	}

	seen := make(map[string]struct{}, len(sent)+len(received))
	for _, v := range append(sent, received...) {
		if id, ok := v.(string); ok && id != identity {
			seen[id] = struct{}{}
		}
	}

	partners := make([]string, 0, len(seen))
	for id := range seen {
		partners = append(partners, id)
	}
	sort.Strings(partners)
	return partners, nil
}

func (r *mongoMessageRepo) Get(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}
