package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetStoreFilePath() string
	GetStorePassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetRedisTTL() time.Duration
}

type Store struct {
	v *viper.Viper
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.v.GetString("store.backend")
}

func (s Store) GetStoreFilePath() string {
	if p := s.v.GetString("store.file_path"); p != "" {
		return p
	}
	return filepath.Join(s.v.GetString("app.data_folder"), "credentials.json")
}

// GetStorePassphrase enables at-rest encryption of the file store when non-empty
func (s Store) GetStorePassphrase() string {
	return s.v.GetString("store.passphrase")
}

func (s Store) GetRedisAddr() string {
	return s.v.GetString("store.redis_addr")
}

func (s Store) GetRedisPassword() string {
	return s.v.GetString("store.redis_password")
}

func (s Store) GetRedisDB() int {
	return s.v.GetInt("store.redis_db")
}

func (s Store) GetRedisPrefix() string {
	return s.v.GetString("store.redis_prefix")
}

func (s Store) GetRedisTTL() time.Duration {
	return s.v.GetDuration("store.redis_ttl")
}
