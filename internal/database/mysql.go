package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brokerage-portal/internal/listing"
	"brokerage-portal/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	db *gorm.DB
}

// LogLevel maps a config level name to the GORM logger level.
func LogLevel(level string) logger.LogLevel {
	switch level {
	case "debug", "info":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "silent":
		return logger.Silent
	default:
		return logger.Error
	}
}

func NewGormDB(host, port, user, password, dbname string, level logger.LogLevel) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate. Properties and projects
// share one struct, so each table is migrated explicitly.
func (gdb *GormDB) InitSchema() error {
	for _, kind := range []models.ListingKind{models.KindProperty, models.KindProject} {
		if err := gdb.db.Table(kind.Table()).AutoMigrate(&models.Listing{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.Table(), err)
		}
	}
	return gdb.db.AutoMigrate(&models.Lead{})
}

// Query implements listing.Source.
func (gdb *GormDB) Query(ctx context.Context, q listing.Query) ([]models.Listing, error) {
	tx := gdb.db.WithContext(ctx).Table(q.Kind.Table())

	w := listingWhere(dialectMySQL, q)
	if cond := w.SQL(); cond != "" {
		tx = tx.Where(cond, w.args...)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []models.Listing
	if err := tx.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Kind = q.Kind
	}
	return rows, nil
}

// Get implements listing.Source.
func (gdb *GormDB) Get(ctx context.Context, kind models.ListingKind, id string) (*models.Listing, error) {
	var l models.Listing
	err := gdb.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, listing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.Kind = kind
	return &l, nil
}

// SaveListings upserts listings by id.
func (gdb *GormDB) SaveListings(ctx context.Context, kind models.ListingKind, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}
	return gdb.db.WithContext(ctx).Table(kind.Table()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(listings, 200).Error
}

// InsertLead stores a contact or referral submission.
func (gdb *GormDB) InsertLead(ctx context.Context, lead *models.Lead) error {
	return gdb.db.WithContext(ctx).Create(lead).Error
}

// CountLeads returns how many leads of each kind are stored.
func (gdb *GormDB) CountLeads(ctx context.Context) (map[models.LeadKind]int64, error) {
	var rows []struct {
		Kind  models.LeadKind
		Total int64
	}
	err := gdb.db.WithContext(ctx).Model(&models.Lead{}).
		Select("kind, COUNT(*) AS total").
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.LeadKind]int64, len(rows))
	for _, r := range rows {
		counts[r.Kind] = r.Total
	}
	return counts, nil
}
