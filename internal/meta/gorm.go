package meta

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AdrianSkaw/dynamic/internal/apperr"
)

type entityTypeRecord struct {
	ID        string `gorm:"primaryKey;size:26"`
	Name      string `gorm:"uniqueIndex;size:100;not null"`
	ClassName string `gorm:"size:100;not null"`
}

func (entityTypeRecord) TableName() string { return "hive_entity_types" }

type entityRecord struct {
	ID          string           `gorm:"primaryKey;size:26"`
	Name        string           `gorm:"uniqueIndex;size:255;not null"`
	Fields      []FieldDef       `gorm:"column:fields;type:jsonb;serializer:json;not null"`
	Identity    []string         `gorm:"column:identity;type:jsonb;serializer:json"`
	PrimaryKeys []string         `gorm:"column:primary_keys;type:jsonb;serializer:json"`
	TypeID      string           `gorm:"size:26;not null"`
	Type        entityTypeRecord `gorm:"foreignKey:TypeID"`
	CreatedAt   time.Time
}

func (entityRecord) TableName() string { return "hive_entities" }

func toRecord(e *Entity) entityRecord {
	return entityRecord{
		ID:          e.ID,
		Name:        e.Name,
		Fields:      e.Fields,
		Identity:    e.Identity,
		PrimaryKeys: e.PrimaryKeys,
		TypeID:      e.Type.ID,
		CreatedAt:   e.CreatedAt,
	}
}

func (r entityRecord) entity() *Entity {
	return &Entity{
		ID:          r.ID,
		Name:        r.Name,
		Fields:      r.Fields,
		Identity:    r.Identity,
		PrimaryKeys: r.PrimaryKeys,
		Type:        EntityType{ID: r.Type.ID, Name: r.Type.Name, ClassName: r.Type.ClassName},
		CreatedAt:   r.CreatedAt,
	}
}

// GormStore хранит метаданные в реляционной БД через gorm.
type GormStore struct {
	db  *gorm.DB
	ids *ids
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, ids: newIDs()}
}

func ioErr(op string, err error) error {
	return apperr.Wrap(apperr.StoreIOError, err, "metadata %s failed", op)
}

// Migrate создаёт служебные таблицы метаданных.
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&entityTypeRecord{}, &entityRecord{}); err != nil {
		return ioErr("migrate", err)
	}
	return nil
}

// SeedTypes добавляет типы сущностей из каталога; ClassName существующих обновляется.
func (s *GormStore) SeedTypes(ctx context.Context, types []EntityType) error {
	for _, t := range types {
		rec := entityTypeRecord{ID: t.ID, Name: t.Name, ClassName: t.ClassName}
		if rec.ID == "" {
			rec.ID = s.ids.next(time.Now())
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"class_name"}),
		}).Create(&rec).Error
		if err != nil {
			return ioErr("seed", err)
		}
	}
	return nil
}

func (s *GormStore) GetByName(ctx context.Context, name string) (*Entity, error) {
	var rec entityRecord
	err := s.db.WithContext(ctx).Preload("Type").Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.EntityNotFound, "Entity %s not found", name)
	}
	if err != nil {
		return nil, ioErr("read", err)
	}
	return rec.entity(), nil
}

func (s *GormStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&entityRecord{}).Where("name = ?", name).Count(&n).Error; err != nil {
		return false, ioErr("read", err)
	}
	return n > 0, nil
}

func (s *GormStore) Create(ctx context.Context, e *Entity) error {
	exists, err := s.Exists(ctx, e.Name)
	if err != nil {
		return err
	}
	if exists {
		return apperr.New(apperr.EntityAlreadyExists, "Entity already exists")
	}
	stamp(s.ids, e)
	rec := toRecord(e)
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.EntityAlreadyExists, "Entity already exists")
		}
		return ioErr("create", err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, e *Entity) error {
	rec := toRecord(e)
	res := s.db.WithContext(ctx).Model(&entityRecord{}).Where("id = ?", e.ID).
		Select("fields", "identity", "primary_keys").Updates(&rec)
	if res.Error != nil {
		return ioErr("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.EntityNotFound, "Entity %s not found", e.Name)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, e *Entity) error {
	res := s.db.WithContext(ctx).Where("name = ?", e.Name).Delete(&entityRecord{})
	if res.Error != nil {
		return ioErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.EntityNotFound, "Entity %s not found", e.Name)
	}
	return nil
}

func (s *GormStore) EntityType(ctx context.Context, name string) (*EntityType, error) {
	var rec entityTypeRecord
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.EntityTypeNotFound, "Entity type does not exist")
	}
	if err != nil {
		return nil, ioErr("read", err)
	}
	return &EntityType{ID: rec.ID, Name: rec.Name, ClassName: rec.ClassName}, nil
}

func (s *GormStore) List(ctx context.Context) ([]*Entity, error) {
	var recs []entityRecord
	if err := s.db.WithContext(ctx).Preload("Type").Order("name").Find(&recs).Error; err != nil {
		return nil, ioErr("list", err)
	}
	out := make([]*Entity, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.entity())
	}
	return out, nil
}

var _ Store = (*GormStore)(nil)
var _ Store = (*MemoryStore)(nil)
