package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-backend/models"

	"github.com/redis/go-redis/v9"
)

// Store keeps each user's cart in Redis so checkout can consume it
// when the request omits an explicit item list.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
	}
}

func (s *Store) getKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

// Get returns the user's cart, or nil when none exists.
func (s *Store) Get(ctx context.Context, userID string) (*models.Cart, error) {
	key := s.getKey(userID)
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Save overwrites the user's cart and refreshes its TTL.
func (s *Store) Save(ctx context.Context, cart *models.Cart) error {
	key := s.getKey(cart.UserID)
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// AddItem merges one line into the user's cart, bumping the quantity
// when the product is already present.
func (s *Store) AddItem(ctx context.Context, userID string, item models.CartItem) (*models.Cart, error) {
	cart, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID}
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, item)
	}

	if err := s.Save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear deletes the user's cart, typically after a successful checkout.
func (s *Store) Clear(ctx context.Context, userID string) error {
	key := s.getKey(userID)
	return s.client.Del(ctx, key).Err()
}
