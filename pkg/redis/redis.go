package redis

import (
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/ticketbay/tb-marketplace/config"
)

var (
	client *redis.Client
	once   sync.Once
)

func GetClient() *redis.Client {
	once.Do(func() {
		c := config.Get().Redis

		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			Password: c.Password,
			DB:       c.DB,
			PoolSize: c.PoolSize,
		})
	})

	return client
}
