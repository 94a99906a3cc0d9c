package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/utils"
	"gorm.io/gorm"
)

type RoomTokenRepository interface {
	Insert(ctx context.Context, t *models.RoomToken) error
	LatestByUser(ctx context.Context, roomID, userID string) (*models.RoomToken, error)
}

type roomTokenRepo struct {
	db *gorm.DB
}

func NewRoomTokenRepo(db *gorm.DB) RoomTokenRepository {
	return &roomTokenRepo{db: db}
}

func (r *roomTokenRepo) Insert(ctx context.Context, t *models.RoomToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *roomTokenRepo) LatestByUser(ctx context.Context, roomID, userID string) (*models.RoomToken, error) {
	var row models.RoomToken
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
