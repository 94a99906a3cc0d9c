package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomRepository interface {
	// Upsert inserts the room, or refreshes the live fields of the row with the same sid.
	Upsert(ctx context.Context, r *models.Room) error
	GetBySID(ctx context.Context, sid string) (*models.Room, error)
	GetByName(ctx context.Context, name string) (*models.Room, error)
	List(ctx context.Context, limit int) ([]models.Room, error)
	DeleteByNameAndUser(ctx context.Context, name, userID string) (int64, error)
}

type roomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Upsert(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sid"}},
			DoUpdates: clause.AssignmentColumns([]string{"empty_timeout", "max_participants", "num_participants", "num_publishers", "active_recording", "codecs", "details", "updated_at"}),
		}).
		Create(room).Error
}

func (r *roomRepo) GetBySID(ctx context.Context, sid string) (*models.Room, error) {
	return r.take(ctx, "sid = ?", sid)
}

func (r *roomRepo) GetByName(ctx context.Context, name string) (*models.Room, error) {
	return r.take(ctx, "name = ?", name)
}

func (r *roomRepo) take(ctx context.Context, query string, arg any) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Where(query, arg).Order("created_at DESC").Take(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) List(ctx context.Context, limit int) ([]models.Room, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Room
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *roomRepo) DeleteByNameAndUser(ctx context.Context, name, userID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("name = ? AND user_id = ?", name, userID).
		Delete(&models.Room{})
	return res.RowsAffected, res.Error
}
