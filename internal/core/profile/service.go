package profile

import (
	"context"
	"strings"
	"time"

	"flavor-remix/internal/core/cache"
	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"go.uber.org/zap"
)

// Fetcher 風味資料上游
type Fetcher interface {
	GetFlavorProfile(ctx context.Context, name string) ([]string, error)
	GetPairingCandidates(ctx context.Context, name string) ([]string, error)
}

// Service 風味 profile 供應服務
// 在上游客戶端外包一層快取與逾時控制；profile 以小寫正規化名稱為鍵
type Service struct {
	config       *config.Config
	fetcher      Fetcher
	cacheManager *cache.Manager
	redisCache   *cache.RedisCache
}

// NewService 創建 profile 服務
func NewService(cfg *config.Config, fetcher Fetcher, cacheManager *cache.Manager, redisCache *cache.RedisCache) *Service {
	return &Service{
		config:       cfg,
		fetcher:      fetcher,
		cacheManager: cacheManager,
		redisCache:   redisCache,
	}
}

// GetProfile 取得食材的風味 token 集合
// 查無資料回 PROFILE_NOT_FOUND；上游逾時或失敗回 SERVICE_UNAVAILABLE，由呼叫端決定致命與否
func (s *Service) GetProfile(ctx context.Context, name string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return nil, common.NewProfileNotFound(name, nil)
	}

	fetch := func() ([]string, error) {
		return s.fetchProfile(ctx, normalized)
	}

	var tokens []string
	var err error
	if s.cacheManager != nil {
		tokens, err = s.cacheManager.GetOrFetch(ctx, "profile:"+normalized, fetch)
	} else {
		tokens, err = fetch()
	}
	if err != nil {
		return nil, err
	}

	if len(tokens) == 0 {
		return nil, common.NewProfileNotFound(name, nil)
	}

	return tokens, nil
}

// fetchProfile 實際向上游抓取，套用每次呼叫的逾時
func (s *Service) fetchProfile(ctx context.Context, normalized string) ([]string, error) {
	// Redis 鏡像先查
	if s.redisCache != nil {
		if tokens, err := s.redisCache.GetProfile(ctx, normalized); err == nil {
			common.LogCacheHit("redis-profile", normalized)
			return tokens, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FlavorDB.Timeout)
	defer cancel()

	start := time.Now()
	tokens, err := s.fetcher.GetFlavorProfile(fetchCtx, normalized)
	if err != nil {
		common.LogWarn("風味 profile 抓取失敗",
			zap.String("ingredient", normalized),
			zap.Duration("耗時", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	if s.redisCache != nil && len(tokens) > 0 {
		_ = s.redisCache.SetProfile(ctx, normalized, tokens)
	}

	return tokens, nil
}

// DefaultCandidates 取得目標食材的預設候選池（上游配對名單）
func (s *Service) DefaultCandidates(ctx context.Context, target string) ([]string, error) {
	normalized := strings.ToLower(strings.TrimSpace(target))

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FlavorDB.Timeout)
	defer cancel()

	candidates, err := s.fetcher.GetPairingCandidates(fetchCtx, normalized)
	if err != nil {
		return nil, err
	}

	if max := s.config.Ranker.MaxCandidates; max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	return candidates, nil
}
