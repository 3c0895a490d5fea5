package profile

import (
	"context"
	"os"
	"testing"
	"time"

	"flavor-remix/internal/core/cache"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

// fakeFetcher 記錄呼叫次數的假上游
type fakeFetcher struct {
	profiles map[string][]string
	pairings map[string][]string
	calls    int
}

func (f *fakeFetcher) GetFlavorProfile(ctx context.Context, name string) ([]string, error) {
	f.calls++
	return f.profiles[name], nil
}

func (f *fakeFetcher) GetPairingCandidates(ctx context.Context, name string) ([]string, error) {
	return f.pairings[name], nil
}

func serviceConfig() *config.Config {
	return &config.Config{
		FlavorDB: config.UpstreamConfig{Timeout: 5 * time.Second},
		Ranker:   config.RankerConfig{MaxCandidates: 3},
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         10,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func TestGetProfileNormalizesName(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string][]string{
		"butter": {"sweet", "creamy"},
	}}
	svc := NewService(serviceConfig(), fetcher, nil, nil)

	tokens, err := svc.GetProfile(context.Background(), "  Butter  ")

	require.NoError(t, err)
	assert.Equal(t, []string{"sweet", "creamy"}, tokens)
}

func TestGetProfileEmptyTokensIsNotFound(t *testing.T) {
	fetcher := &fakeFetcher{profiles: map[string][]string{}}
	svc := NewService(serviceConfig(), fetcher, nil, nil)

	_, err := svc.GetProfile(context.Background(), "unobtainium")

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeProfileNotFound))
}

func TestGetProfileEmptyName(t *testing.T) {
	svc := NewService(serviceConfig(), &fakeFetcher{}, nil, nil)

	_, err := svc.GetProfile(context.Background(), "   ")

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeProfileNotFound))
}

func TestGetProfileUsesCache(t *testing.T) {
	cfg := serviceConfig()
	fetcher := &fakeFetcher{profiles: map[string][]string{
		"butter": {"sweet", "creamy"},
	}}
	manager := cache.NewManager(cfg)
	defer manager.Close()

	svc := NewService(cfg, fetcher, manager, nil)

	_, err := svc.GetProfile(context.Background(), "butter")
	require.NoError(t, err)
	_, err = svc.GetProfile(context.Background(), "Butter")
	require.NoError(t, err)

	// 大小寫不同的同名食材共享同一個快取鍵
	assert.Equal(t, 1, fetcher.calls)
}

func TestDefaultCandidatesTruncated(t *testing.T) {
	fetcher := &fakeFetcher{pairings: map[string][]string{
		"butter": {"margarine", "ghee", "olive oil", "shortening", "lard"},
	}}
	svc := NewService(serviceConfig(), fetcher, nil, nil)

	candidates, err := svc.DefaultCandidates(context.Background(), "Butter")

	require.NoError(t, err)
	assert.Equal(t, []string{"margarine", "ghee", "olive oil"}, candidates)
}
