package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"career-roadmap/backend/models"
	"career-roadmap/backend/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists roadmaps. Writes to one roadmap are serialized by a row lock;
// writes to different roadmaps never wait on each other.
type Store interface {
	Create(ctx context.Context, profile models.UserProfile, stages []models.RoadmapStage) (*models.RoadmapRecord, error)
	FindByID(ctx context.Context, id string) (*models.RoadmapRecord, error)
	AppendProgress(ctx context.Context, id string, entry models.ProgressLogEntry) (*models.RoadmapRecord, error)
	ReplaceStages(ctx context.Context, id string, stages []models.RoadmapStage) (*models.RoadmapRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.RoadmapRecord, error)
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type RoadmapRepository struct {
	db    *gorm.DB
	newID func() string
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{db: db, newID: func() string { return uuid.NewString() }}
}

func (r *RoadmapRepository) Create(ctx context.Context, profile models.UserProfile, stages []models.RoadmapStage) (*models.RoadmapRecord, error) {
	row := models.Roadmap{
		ID:          r.newID(),
		UserProfile: datatypes.NewJSONType(profile),
		Stages:      datatypes.NewJSONType(stages),
	}

	// Duplicates are detected by the primary key constraint.
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, utils.NewError(utils.KindDuplicateID, "roadmap id already exists", err)
	}
	if err != nil {
		return nil, utils.StorageErr("create roadmap", err)
	}
	return row.Record(), nil
}

func (r *RoadmapRepository) FindByID(ctx context.Context, id string) (*models.RoadmapRecord, error) {
	row, err := r.load(r.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return row.Record(), nil
}

func (r *RoadmapRepository) AppendProgress(ctx context.Context, id string, entry models.ProgressLogEntry) (*models.RoadmapRecord, error) {
	var out *models.Roadmap
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lock(tx, id); err != nil {
			return err
		}
		if err := checkStage(tx, id, entry.StageIndex); err != nil {
			return err
		}
		row := models.RoadmapProgressEntry{
			RoadmapID:      id,
			StageIndex:     entry.StageIndex,
			CompletionRate: entry.CompletionRate,
			Date:           entry.Date,
			Note:           entry.Note,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if err := touch(tx, id); err != nil {
			return err
		}
		loaded, err := r.load(tx, id)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})
	if err != nil {
		return nil, wrapStorage("append progress", err)
	}
	return out.Record(), nil
}

func (r *RoadmapRepository) ReplaceStages(ctx context.Context, id string, stages []models.RoadmapStage) (*models.RoadmapRecord, error) {
	var out *models.Roadmap
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lock(tx, id); err != nil {
			return err
		}
		// Only the stages column is written; the progress log is untouched.
		res := tx.Model(&models.Roadmap{}).Where("id = ?", id).Updates(map[string]interface{}{
			"stages":     datatypes.NewJSONType(stages),
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		loaded, err := r.load(tx, id)
		if err != nil {
			return err
		}
		out = loaded
		return nil
	})
	if err != nil {
		return nil, wrapStorage("replace stages", err)
	}
	return out.Record(), nil
}

func (r *RoadmapRepository) ListRecent(ctx context.Context, limit int) ([]*models.RoadmapRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.Roadmap
	err := r.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, utils.StorageErr("list roadmaps", err)
	}
	out := make([]*models.RoadmapRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Record())
	}
	return out, nil
}

func (r *RoadmapRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lock(tx, id); err != nil {
			return err
		}
		if err := tx.Where("roadmap_id = ?", id).Delete(&models.RoadmapProgressEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Roadmap{}).Error
	})
	return wrapStorage("delete roadmap", err)
}

func (r *RoadmapRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// lock takes the row lock for id inside tx. SQLite ignores the clause and
// serializes writers on its own.
func lock(tx *gorm.DB, id string) error {
	var row models.Roadmap
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return err
	}
	if row.ID == "" {
		return utils.NotFoundErr("roadmap")
	}
	return nil
}

// checkStage rejects an entry whose stage is not a position in the current stages.
func checkStage(tx *gorm.DB, id string, stage int) error {
	if stage == models.OffTrackStage {
		return nil
	}
	var row models.Roadmap
	if err := tx.Select("id", "stages").Where("id = ?", id).Take(&row).Error; err != nil {
		return err
	}
	if n := len(row.Stages.Data()); stage < 0 || stage >= n {
		return utils.ValidationErr(fmt.Sprintf("invalid request: stage must be -1 or below %d", n),
			map[string]string{"stage": fmt.Sprintf("must be -1 or below %d", n)})
	}
	return nil
}

func (r *RoadmapRepository) load(tx *gorm.DB, id string) (*models.Roadmap, error) {
	var row models.Roadmap
	err := tx.Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundErr("roadmap")
	}
	if err != nil {
		return nil, utils.StorageErr("load roadmap", err)
	}
	return &row, nil
}

func touch(tx *gorm.DB, id string) error {
	return tx.Model(&models.Roadmap{}).Where("id = ?", id).Update("updated_at", time.Now().UTC()).Error
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return err
	}
	return utils.StorageErr(op, err)
}
