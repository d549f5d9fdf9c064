// Package store 图像记录的持久化
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const UserListLimit = 20

var (
	ErrNotFound    = errors.New("图像不存在")
	ErrUnavailable = errors.New("数据库未连接")
)

// Store 图像记录存储
//
// A nil *Store is valid: writes are skipped and reads report ErrUnavailable.
type Store struct {
	db    *gorm.DB
	cache *expirable.LRU[string, *Image]
}

// Open 连接数据库并迁移表结构，gorm 的日志写到 w (nil 时为 stderr)
func Open(dsn string, w io.Writer) (*Store, error) {
	if w == nil {
		w = os.Stderr
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(log.New(w, "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	return New(db)
}

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Image{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return &Store{
		db:    db,
		cache: expirable.NewLRU[string, *Image](256, nil, 10*time.Minute),
	}, nil
}

// Save 保存记录，ID 为空时生成新的 UUID
func (s *Store) Save(ctx context.Context, img *Image) error {
	if s == nil {
		return nil // 未配置数据库，跳过保存
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(img).Error; err != nil {
		return fmt.Errorf("保存图像记录失败: %w", err)
	}
	s.cache.Add(img.ID, img)
	return nil
}

// ByID 按 ID 查询
func (s *Store) ByID(ctx context.Context, id string) (*Image, error) {
	if s == nil {
		return nil, ErrUnavailable
	}
	if img, ok := s.cache.Get(id); ok {
		return img, nil
	}

	var img Image
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询图像失败: %w", err)
	}
	s.cache.Add(id, &img)
	return &img, nil
}

// ByUser 返回用户最近的记录，按创建时间倒序，最多 UserListLimit 条
func (s *Store) ByUser(ctx context.Context, userID string) ([]Image, error) {
	if s == nil {
		return nil, ErrUnavailable
	}
	images := make([]Image, 0)
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(UserListLimit).
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("获取用户图像失败: %w", err)
	}
	return images, nil
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return ErrUnavailable
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
