package services

import (
	"context"
	"time"

	"github.com/yoockh/speechrelay/internal/models"
	mongorepo "github.com/yoockh/speechrelay/internal/repositories/mongo"
	"github.com/yoockh/speechrelay/internal/utils"
)

type UtteranceLogService interface {
	Record(ctx context.Context, rec *models.UtteranceRecord) error
	ListByRoom(ctx context.Context, roomID string, since time.Time, limit int64) ([]models.UtteranceRecord, error)
}

type utteranceLogService struct {
	utterances mongorepo.UtteranceRepository
	ttl        time.Duration
}

func NewUtteranceLogService(utterances mongorepo.UtteranceRepository, ttl time.Duration) UtteranceLogService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &utteranceLogService{utterances: utterances, ttl: ttl}
}

func (s *utteranceLogService) Record(ctx context.Context, rec *models.UtteranceRecord) error {
	const op = "UtteranceLogService.Record"

	if rec == nil || rec.RoomID == "" || rec.UserID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "room_id and user_id are required", nil)
	}

	now := time.Now().UTC()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	rec.ExpiresAt = rec.Timestamp.Add(s.ttl)

	if err := s.utterances.Insert(ctx, rec); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert utterance", err)
	}
	return nil
}

func (s *utteranceLogService) ListByRoom(ctx context.Context, roomID string, since time.Time, limit int64) ([]models.UtteranceRecord, error) {
	const op = "UtteranceLogService.ListByRoom"

	if roomID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "room_id is required", nil)
	}
	if limit > 500 {
		limit = 500
	}
	out, err := s.utterances.ListByRoom(ctx, roomID, since, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list utterances", err)
	}
	return out, nil
}
