package sqlrepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jrsteele09/fm-metrics/members"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var _ members.Repo = (*Repo)(nil)

type Repo struct {
	database *gorm.DB
	hasher   members.Hasher
}

// OpenSQLite opens (creating if needed) the sqlite database at dbPath and migrates the members table
func OpenSQLite(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			&log.Logger,
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := database.AutoMigrate(&members.Member{}); err != nil {
		return nil, fmt.Errorf("migrate members: %w", err)
	}
	return database, nil
}

func New(database *gorm.DB, hasher members.Hasher) *Repo {
	return &Repo{database: database, hasher: hasher}
}

func (r *Repo) Record(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("[sqlrepo Record] userID is required")
	}

	member := members.Member{
		IDHash:      r.hasher.Hash(userID),
		FirstSeenAt: at,
		LastSeenAt:  at,
		Logins:      1,
	}
	err := r.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id_hash"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seen_at": at,
			"logins":       gorm.Expr("logins + 1"),
		}),
	}).Create(&member).Error
	if err != nil {
		return fmt.Errorf("[sqlrepo Record] %w", err)
	}
	return nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.database.WithContext(ctx).Model(&members.Member{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("[sqlrepo Count] %w", err)
	}
	return count, nil
}

// Get looks a member up by raw user id
func (r *Repo) Get(ctx context.Context, userID string) (members.Member, error) {
	var member members.Member
	if err := r.database.WithContext(ctx).First(&member, "id_hash = ?", r.hasher.Hash(userID)).Error; err != nil {
		return members.Member{}, fmt.Errorf("[sqlrepo Get] %w", err)
	}
	return member, nil
}
