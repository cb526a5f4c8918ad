package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askielabs/askie-api/internal/models"
)

// walletTTL bounds staleness if an invalidation is ever lost; the
// settlement engine deletes the key on every mutation anyway.
const walletTTL = 5 * time.Minute

type Cache struct {
	client *redis.Client
}

func New(redisAddr string, db int) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   db,
	})

	return &Cache{client: client}
}

func walletKey(userID string) string {
	return "wallet:user:" + userID
}

// GetWallet returns the cached wallet snapshot, or (nil, nil) on a miss.
func (c *Cache) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	raw, err := c.client.Get(ctx, walletKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var wallet models.Wallet
	if err := json.Unmarshal([]byte(raw), &wallet); err != nil {
		// a corrupt entry is treated as a miss
		c.client.Del(ctx, walletKey(userID))
		return nil, nil
	}

	return &wallet, nil
}

func (c *Cache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	raw, err := json.Marshal(wallet)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, walletKey(wallet.UserID), raw, walletTTL).Err()
}

// InvalidateWallet drops the cached snapshot after a balance mutation.
func (c *Cache) InvalidateWallet(ctx context.Context, userID string) error {
	return c.client.Del(ctx, walletKey(userID)).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
