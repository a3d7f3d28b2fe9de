package repositoryImp

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"fieldops/entities"
	"fieldops/pkg/offline/repository"
)

type cacheRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.DetailCache { return &cacheRepo{db} }

func (r *cacheRepo) Put(taskID int64, d *entities.TaskDetail) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	row := entities.CachedDetail{TaskID: taskID, Payload: string(b), FetchedAt: time.Now()}
	return r.db.Save(&row).Error
}

func (r *cacheRepo) Get(taskID int64) (*entities.TaskDetail, time.Time, error) {
	var row entities.CachedDetail
	if err := r.db.First(&row, "task_id = ?", taskID).Error; err != nil {
		return nil, time.Time{}, err
	}
	var d entities.TaskDetail
	if err := json.Unmarshal([]byte(row.Payload), &d); err != nil {
		return nil, time.Time{}, err
	}
	return &d, row.FetchedAt, nil
}
