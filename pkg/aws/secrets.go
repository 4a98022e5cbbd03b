package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretCacheTTL bounds how long a fetched secret is reused, so
// credential rotation is picked up without a round trip per lookup.
const secretCacheTTL = 5 * time.Minute

type cachedSecret struct {
	value     string
	fetchedAt time.Time
}

// SecretsClient reads Secrets Manager values with a TTL cache. The
// storefront uses it for the DB credential secret.
type SecretsClient struct {
	client *secretsmanager.Client
	ttl    time.Duration
	mu     sync.RWMutex
	cache  map[string]cachedSecret
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		ttl:    secretCacheTTL,
		cache:  make(map[string]cachedSecret),
	}
}

// GetSecret returns the secret's string value, serving from cache
// while the entry is fresh.
func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	entry, ok := s.cache[name]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < s.ttl {
		return entry.value, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = cachedSecret{value: *out.SecretString, fetchedAt: time.Now()}
	s.mu.Unlock()

	return *out.SecretString, nil
}

// GetJSON fetches a secret and unmarshals its JSON value into out.
// The storefront's credential secrets are flat JSON objects.
func (s *SecretsClient) GetJSON(ctx context.Context, name string, out interface{}) error {
	raw, err := s.GetSecret(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("secret %s is not valid JSON: %w", name, err)
	}
	return nil
}
