// 电芯规格、热仿真参数、放电仿真结果的持久化
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"batsim/model"
)

type CellStore interface {
	GetCell(ctx context.Context, cellType, formFactor string) (*model.BatteryCellSpec, error)
	PutCell(ctx context.Context, cell *model.BatteryCellSpec) error
}

type ParameterStore interface {
	SaveParameters(ctx context.Context, p *model.ThermalSimParameters) error
	GetParameters(ctx context.Context, id string) (*model.ThermalSimParameters, error)
	UpdateParameters(ctx context.Context, id string, patch []byte) (*model.ThermalSimParameters, error)
}

type ResultStore interface {
	SaveResult(ctx context.Context, r *model.DischargeRecord) error
	GetResult(ctx context.Context, id string) (*model.DischargeRecord, error)
}

type Repository interface {
	CellStore
	ParameterStore
	ResultStore
	Close() error
}

type Config struct {
	Backend       string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

func LoadConfig(file *ini.File) Config {
	sec := file.Section("store")
	return Config{
		Backend:       sec.Key("backend").In("memory", []string{"memory", "redis"}),
		RedisAddr:     sec.Key("redis_addr").MustString("localhost:6379"),
		RedisPassword: sec.Key("redis_password").String(),
		RedisDB:       sec.Key("redis_db").MustInt(0),
		KeyPrefix:     sec.Key("key_prefix").MustString("batsim"),
	}
}

// 底层键值存储，未找到时返回 model.ErrNotFound
type kv interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte) error
	close() error
}

// Store 以 json 形式保存所有记录
type Store struct {
	kv     kv
	prefix string
}

var _ Repository = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.KeyPrefix), nil
	case "redis":
		return NewRedisStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func (s *Store) Close() error {
	return s.kv.close()
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (s *Store) load(ctx context.Context, key string, v interface{}) error {
	data, err := s.kv.get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.kv.set(ctx, key, data)
}

func (s *Store) GetCell(ctx context.Context, cellType, formFactor string) (*model.BatteryCellSpec, error) {
	var cell model.BatteryCellSpec
	if err := s.load(ctx, s.key("cell", cellType, formFactor), &cell); err != nil {
		return nil, fmt.Errorf("cell %s/%s: %w", cellType, formFactor, err)
	}
	return &cell, nil
}

// 保存前重新计算体积
func (s *Store) PutCell(ctx context.Context, cell *model.BatteryCellSpec) error {
	cell.UpdateVolume()
	if err := cell.Validate(); err != nil {
		return err
	}
	return s.save(ctx, s.key("cell", cell.CellType, cell.FormFactor), cell)
}

func (s *Store) SaveParameters(ctx context.Context, p *model.ThermalSimParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Id == "" {
		p.Id = uuid.New().String()
	}
	return s.save(ctx, s.key("params", p.Id), p)
}

func (s *Store) GetParameters(ctx context.Context, id string) (*model.ThermalSimParameters, error) {
	var p model.ThermalSimParameters
	if err := s.load(ctx, s.key("params", id), &p); err != nil {
		return nil, fmt.Errorf("parameters %s: %w", id, err)
	}
	return &p, nil
}

// patch 中出现的字段覆盖原记录，id 不可修改
func (s *Store) UpdateParameters(ctx context.Context, id string, patch []byte) (*model.ThermalSimParameters, error) {
	p, err := s.GetParameters(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(patch) > 0 {
		if err := json.Unmarshal(patch, p); err != nil {
			if errors.Is(err, model.ErrInvalidParameter) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidParameter, err)
		}
	}
	p.Id = id
	if err := s.SaveParameters(ctx, p); err != nil {
		return nil, err
	}
	log.WithField("id", id).Info("更新热仿真参数")
	return p, nil
}

func (s *Store) SaveResult(ctx context.Context, r *model.DischargeRecord) error {
	if r.Id == "" {
		r.Id = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return s.save(ctx, s.key("result", r.Id), r)
}

func (s *Store) GetResult(ctx context.Context, id string) (*model.DischargeRecord, error) {
	var r model.DischargeRecord
	if err := s.load(ctx, s.key("result", id), &r); err != nil {
		return nil, fmt.Errorf("result %s: %w", id, err)
	}
	return &r, nil
}
