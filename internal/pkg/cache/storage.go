package cache

import (
	"fmt"
	"strconv"

	redisstorage "github.com/gofiber/storage/redis"
)

// NewStorage opens a fiber storage on the cache server in database db, for
// middleware state that must be shared between instances.
func NewStorage(cfg Config, db int) (s *redisstorage.Storage, err error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("cache port %q: %w", cfg.Port, err)
	}

	// redisstorage.New panics when the server does not answer its ping.
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("open storage on %s:%d/%d: %v", cfg.Host, port, db, r)
		}
	}()

	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     port,
		Password: cfg.Password,
		Database: db,
		Reset:    false,
	}), nil
}
