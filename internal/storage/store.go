package storage

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"permock/internal/logger"
	"permock/pkg/domain"
)

// Observation 未改写/未知响应的诊断快照表
type Observation struct {
	ID        uint   `gorm:"primaryKey"`
	Trace     string `gorm:"index;size:64"`
	URL       string `gorm:"index"`
	Class     string `gorm:"size:16"`
	Body      string
	CreatedAt time.Time
}

// Mutation 字段改写审计表，Before/After 为 JSON 字面量
type Mutation struct {
	ID        uint   `gorm:"primaryKey"`
	Trace     string `gorm:"index;size:64"`
	URL       string `gorm:"index"`
	Path      string
	Before    string
	After     string
	CreatedAt time.Time
}

// Store sqlite 诊断存储
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open 打开数据库并迁移表结构，prefix 作为表名前缀
func Open(dsn, prefix string, l logger.Logger) (*Store, error) {
	if l == nil {
		l = logger.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: prefix,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Observation{}, &Mutation{}); err != nil {
		return nil, err
	}
	return &Store{db: db, log: l}, nil
}

// RecordObservation 落库一条诊断快照
func (s *Store) RecordObservation(ctx context.Context, obs domain.Observation) error {
	row := Observation{
		Trace: obs.Trace,
		URL:   obs.URL,
		Class: string(obs.Class),
		Body:  obs.Body,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// RecordChanges 批量落库一次响应的字段变更
func (s *Store) RecordChanges(ctx context.Context, trace, url string, changes []domain.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	rows := make([]Mutation, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, Mutation{
			Trace:  trace,
			URL:    url,
			Path:   c.Path,
			Before: c.Before,
			After:  c.After,
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// Close 关闭底层数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
