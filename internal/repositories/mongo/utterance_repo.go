package mongo

import (
	"context"
	"time"

	"github.com/yoockh/speechrelay/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UtteranceCollection = "utterance_log"

type UtteranceRepository interface {
	Insert(ctx context.Context, u *models.UtteranceRecord) error
	ListByRoom(ctx context.Context, roomID string, since time.Time, limit int64) ([]models.UtteranceRecord, error)
}

type utteranceRepo struct {
	col *mongo.Collection
}

func NewUtteranceRepo(db *mongo.Database) UtteranceRepository {
	return &utteranceRepo{col: db.Collection(UtteranceCollection)}
}

func (r *utteranceRepo) Insert(ctx context.Context, u *models.UtteranceRecord) error {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, u)
	return err
}

// ListByRoom returns the newest records first.
func (r *utteranceRepo) ListByRoom(ctx context.Context, roomID string, since time.Time, limit int64) ([]models.UtteranceRecord, error) {
	if limit <= 0 {
		limit = 200
	}

	filter := bson.M{"room_id": roomID}
	if !since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": since.UTC()}
	}

	cur, err := r.col.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.UtteranceRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
