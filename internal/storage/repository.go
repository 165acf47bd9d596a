package storage

import (
	"time"

	"gorm.io/gorm"
)

const maxHistory = 500

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveQueryLog(entry *QueryLog) error {
	return r.db.Create(entry).Error
}

// RecentQueryLogs returns the newest entries first. view filters when non-empty.
func (r *Repository) RecentQueryLogs(view string, limit int) ([]QueryLog, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	q := r.db.Order("created_at DESC").Order("id DESC").Limit(limit)
	if view != "" {
		q = q.Where("view = ?", view)
	}
	var logs []QueryLog
	err := q.Find(&logs).Error
	return logs, err
}

func (r *Repository) CountSince(view string, since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&QueryLog{}).
		Where("view = ? AND created_at >= ?", view, since).
		Count(&n).Error
	return n, err
}

// Prune drops entries older than before and reports how many went.
func (r *Repository) Prune(before time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", before).Delete(&QueryLog{})
	return res.RowsAffected, res.Error
}
