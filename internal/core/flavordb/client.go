package flavordb

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client FlavorDB API 客戶端
// 負責查詢食材的風味分子 profile 與配對候選
type Client struct {
	config *config.UpstreamConfig
	client *resty.Client
}

// NewClient 創建 FlavorDB 客戶端
func NewClient(cfg *config.UpstreamConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token)).
		SetHeader("X-API-Key", cfg.Token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	common.LogDebug("FlavorDB 客戶端已初始化",
		zap.String("base_url", cfg.BaseURL),
		zap.String("token_hint", common.MaskToken(cfg.Token)),
	)

	return &Client{
		config: cfg,
		client: client,
	}
}

// GetFlavorProfile 查詢食材的風味 token 集合
// 先查分子資料；部署差異導致非分子名稱回 400 或 404，兩者都退回配對簽名
// 回傳空集合表示上游沒有該食材的資料
func (c *Client) GetFlavorProfile(ctx context.Context, name string) ([]string, error) {
	start := time.Now()
	payload, err := c.get(ctx, "/molecules_data/by-commonName", map[string]string{
		"common_name": name,
		"page":        "0",
		"size":        "50",
	})
	common.LogUpstreamCall("flavordb", "/molecules_data/by-commonName", time.Since(start), err)

	if err != nil {
		if common.ErrorStatus(err) == http.StatusBadRequest || common.ErrorStatus(err) == http.StatusNotFound {
			return c.profileFromPairings(ctx, name)
		}
		return nil, err
	}

	profile := make(map[string]struct{})
	for _, item := range extractItems(payload) {
		var tokens []string
		tokens = append(tokens, tokensFromValue(item["flavorProfile"])...)
		tokens = append(tokens, tokensFromValue(item["flavor_profile"])...)
		tokens = append(tokens, tokensFromValue(item["fooddb_flavor_profile"])...)
		tokens = append(tokens, tokensFromValue(item["fema_flavor_profile"])...)

		for _, token := range tokens {
			cleaned := strings.ToLower(strings.TrimSpace(token))
			if cleaned != "" {
				profile[cleaned] = struct{}{}
			}
		}
	}

	if len(profile) > 0 {
		return sortedKeys(profile), nil
	}

	// 分子資料為空時退回配對簽名
	return c.profileFromPairings(ctx, name)
}

// GetPairingCandidates 取得食材的配對候選名單，作為預設候選池
func (c *Client) GetPairingCandidates(ctx context.Context, name string) ([]string, error) {
	payload, err := c.getPairings(ctx, name)
	if err != nil {
		if common.ErrorStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return extractPairingCandidates(payload, name), nil
}

// profileFromPairings 以配對實體簽名當作風味 profile 的後備來源
func (c *Client) profileFromPairings(ctx context.Context, name string) ([]string, error) {
	payload, err := c.getPairings(ctx, name)
	if err != nil {
		if common.ErrorStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}

	rows, ok := payload["topSimilarEntities"].([]interface{})
	if !ok {
		return nil, nil
	}

	signature := make(map[string]struct{})
	for _, row := range rows {
		entry, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		if entityName, ok := entry["entityName"].(string); ok && strings.TrimSpace(entityName) != "" {
			signature["entity:"+strings.ToLower(strings.TrimSpace(entityName))] = struct{}{}
		}
		if category, ok := entry["category"].(string); ok && strings.TrimSpace(category) != "" {
			signature["category:"+strings.ToLower(strings.TrimSpace(category))] = struct{}{}
		}
	}

	return sortedKeys(signature), nil
}

// getPairings 查詢食材配對資料
func (c *Client) getPairings(ctx context.Context, name string) (map[string]interface{}, error) {
	start := time.Now()
	payload, err := c.get(ctx, "/food/by-alias", map[string]string{"food_pair": name})
	common.LogUpstreamCall("flavordb", "/food/by-alias", time.Since(start), err)
	return payload, err
}

// get 發送 GET 請求並解析 JSON 回應
func (c *Client) get(ctx context.Context, path string, params map[string]string) (map[string]interface{}, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)

	if err != nil {
		common.LogError("FlavorDB 請求失敗",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, common.NewError(common.ErrCodeServiceUnavailable,
			fmt.Sprintf("FlavorDB request failed for %s", path),
			http.StatusBadGateway, err)
	}

	if resp.StatusCode() != http.StatusOK {
		status := resp.StatusCode()
		message := fmt.Sprintf("FlavorDB request failed for %s: HTTP %d", path, status)
		if status == http.StatusUnauthorized {
			message += " (unauthorized token)"
		}
		return nil, common.NewError(common.ErrCodeServiceUnavailable, message, status, nil)
	}

	var payload map[string]interface{}
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewError(common.ErrCodeServiceUnavailable,
			fmt.Sprintf("FlavorDB returned non-JSON response for %s", path),
			http.StatusBadGateway, err)
	}

	return payload, nil
}

// extractItems 從多種回應形狀中取出資料列
// 上游部署間欄位不一致：data / content / results，或包在 payload 底下
func extractItems(payload map[string]interface{}) []map[string]interface{} {
	candidates := []interface{}{
		payload["data"],
		payload["content"],
		payload["results"],
	}
	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		candidates = append(candidates, nested["data"], nested["content"], nested["results"])
	}

	for _, value := range candidates {
		list, ok := value.([]interface{})
		if !ok {
			continue
		}
		items := make([]map[string]interface{}, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				items = append(items, m)
			}
		}
		return items
	}

	return nil
}

// tokensFromValue 從欄位值取出 token 清單；接受字串清單或分號/逗號分隔字串
func tokensFromValue(value interface{}) []string {
	switch v := value.(type) {
	case []interface{}:
		tokens := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tokens = append(tokens, s)
			}
		}
		return tokens
	case string:
		var tokens []string
		for _, chunk := range regexp.MustCompile(`[;,]`).Split(v, -1) {
			if trimmed := strings.TrimSpace(chunk); trimmed != "" {
				tokens = append(tokens, trimmed)
			}
		}
		return tokens
	}
	return nil
}

// 配對回應中可能攜帶候選名稱的欄位
var preferredCandidateKeys = map[string]struct{}{
	"food_pair":          {},
	"foodPair":           {},
	"ingredient":         {},
	"pairing":            {},
	"pairings":           {},
	"name":               {},
	"entityName":         {},
	"commonName":         {},
	"common_name":        {},
	"aliasReadable":      {},
	"entityAliasReadable": {},
}

var candidateSplitPattern = regexp.MustCompile(`\|\||,`)

// extractPairingCandidates 走訪整個配對回應，收集候選食材名稱
// 過濾來源食材本身、URL 與過長字串，並保持首次出現的順序
func extractPairingCandidates(payload map[string]interface{}, source string) []string {
	var raw []string

	var walk func(node interface{})
	walk = func(node interface{}) {
		switch n := node.(type) {
		case map[string]interface{}:
			// map 走訪順序不固定，改用排序後的鍵確保候選順序可重現
			keys := make([]string, 0, len(n))
			for key := range n {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				value := n[key]
				if _, ok := preferredCandidateKeys[key]; ok {
					switch v := value.(type) {
					case string:
						raw = append(raw, v)
					case []interface{}:
						for _, item := range v {
							if s, ok := item.(string); ok {
								raw = append(raw, s)
							}
						}
					}
				}
				walk(value)
			}
		case []interface{}:
			for _, item := range n {
				walk(item)
			}
		}
	}
	walk(payload)

	sourceNormalized := strings.ToLower(strings.TrimSpace(source))
	seen := make(map[string]struct{})
	var parsed []string

	for _, value := range raw {
		for _, chunk := range candidateSplitPattern.Split(value, -1) {
			candidate := strings.ToLower(strings.TrimSpace(chunk))
			if candidate == "" || candidate == sourceNormalized {
				continue
			}
			if strings.Contains(candidate, "http://") || strings.Contains(candidate, "https://") {
				continue
			}
			if len(candidate) > 80 {
				continue
			}
			if _, ok := seen[candidate]; !ok {
				seen[candidate] = struct{}{}
				parsed = append(parsed, candidate)
			}
		}
	}

	return parsed
}

// sortedKeys 將集合輸出為排序後的切片，確保結果可重現
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
