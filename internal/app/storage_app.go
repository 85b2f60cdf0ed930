package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"posto/config"
	"posto/internal/storage"
	"posto/internal/storage/memory"
	"posto/internal/storage/redisstore"
	"posto/internal/storage/sqlite"
)

type StorageApp struct {
	storage storage.Store
}

// NewStorageApp opens the session-state store selected by config.
func NewStorageApp(cfg config.StorageConfig) (*StorageApp, error) {
	switch cfg.Driver {
	case "sqlite", "":
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &StorageApp{storage: store}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return &StorageApp{storage: redisstore.New(client)}, nil

	case "memory":
		return &StorageApp{storage: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func (s *StorageApp) Stop() error {
	return s.storage.Close()
}

func (s *StorageApp) Storage() storage.Store {
	return s.storage
}
