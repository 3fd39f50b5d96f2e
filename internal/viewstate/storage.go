package viewstate

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	applog "resinbay/internal/log"
	"resinbay/models"
)

// MemoryStorage is a map-backed Storage for tests and session-only state.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStorage) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

type unavailableStorage struct{}

func (unavailableStorage) Get(string) (string, bool) { return "", false }
func (unavailableStorage) Set(string, string)        {}
func (unavailableStorage) Delete(string)             {}

// Unavailable returns a Storage whose medium is gone: reads report absent
// and writes vanish. Everything on top keeps working session-only.
func Unavailable() Storage {
	return unavailableStorage{}
}

// UserStorage persists view-state keys as per-user setting rows. Database
// failures are logged and swallowed so an unavailable medium never surfaces
// to the user, matching the degradation contract of the store.
type UserStorage struct {
	db     *gorm.DB
	userID uint
	ctx    context.Context
}

// NewUserStorage scopes a database-backed Storage to one user. A nil
// database yields the unavailable behavior.
func NewUserStorage(ctx context.Context, db *gorm.DB, userID uint) *UserStorage {
	return &UserStorage{db: db, userID: userID, ctx: ctx}
}

func (s *UserStorage) Get(key string) (string, bool) {
	if s.db == nil {
		return "", false
	}
	var setting models.Setting
	err := s.db.WithContext(s.ctx).
		Where("user_id = ? AND key = ?", s.userID, key).
		First(&setting).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Debug(s.ctx, "view-state read failed", "key", key, "error", err)
		}
		return "", false
	}
	return setting.Value, true
}

func (s *UserStorage) Set(key, value string) {
	if s.db == nil {
		return
	}
	setting := models.Setting{UserID: s.userID, Key: key, Value: value}
	err := s.db.WithContext(s.ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		applog.Debug(s.ctx, "view-state write failed", "key", key, "error", err)
	}
}

func (s *UserStorage) Delete(key string) {
	if s.db == nil {
		return
	}
	err := s.db.WithContext(s.ctx).
		Where("user_id = ? AND key = ?", s.userID, key).
		Delete(&models.Setting{}).Error
	if err != nil {
		applog.Debug(s.ctx, "view-state delete failed", "key", key, "error", err)
	}
}
