package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
)

type mapCacheRepo struct {
	entries map[string][]byte
	sets    int
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{entries: make(map[string][]byte)}
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), "stock:list:1", &out)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "stock:list:1", "payload", 0))

	hit, err = svc.Get(context.Background(), "stock:list:1", &out)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "payload", out)
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	require.NoError(t, svc.Set(context.Background(), "stock:list:1", "a", 0))
	require.NoError(t, svc.Set(context.Background(), "catalog:materials:", "b", 0))

	require.NoError(t, svc.Invalidate(context.Background(), "stock:*"))

	var out string
	hit, err := svc.Get(context.Background(), "stock:list:1", &out)
	require.NoError(t, err)
	require.False(t, hit)

	hit, err = svc.Get(context.Background(), "catalog:materials:", &out)
	require.NoError(t, err)
	require.True(t, hit)
}

func TestCacheServiceDisabledNoops(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "stock:list:1", "a", 0))
	require.Zero(t, repo.sets)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "stock:list:1", nil)
	require.NoError(t, err)
	require.False(t, hit)
}
