package recipedb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client RecipeDB API 客戶端
// 負責以 ID 或標題查詢食譜與其食材序列
type Client struct {
	config *config.UpstreamConfig
	client *resty.Client
}

// NewClient 創建 RecipeDB 客戶端
func NewClient(cfg *config.UpstreamConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token)).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	common.LogDebug("RecipeDB 客戶端已初始化",
		zap.String("base_url", cfg.BaseURL),
		zap.String("token_hint", common.MaskToken(cfg.Token)),
	)

	return &Client{
		config: cfg,
		client: client,
	}
}

// GetRecipe 以 ID 或標題取得食譜
// 標題解析到多個不同食譜時回 AMBIGUOUS_TITLE，不會默默挑第一筆
func (c *Client) GetRecipe(ctx context.Context, ref common.RecipeRef) (*common.Recipe, error) {
	if ref.IsZero() {
		return nil, common.NewError(common.ErrCodeInvalidRequest,
			"必須提供食譜 ID 或標題", http.StatusBadRequest, nil)
	}

	if ref.ID != "" {
		return c.getByID(ctx, ref.ID)
	}

	// 標題查詢：多抓幾筆以偵測歧義
	payload, err := c.get(ctx, "/recipe2-api/recipebyingredient/by-ingredients-categories-title", map[string]string{
		"title": ref.Title,
		"page":  "1",
		"limit": "5",
	})
	if err != nil {
		return nil, err
	}

	matches := extractRecipeList(payload)
	ids := distinctRecipeIDs(matches)
	switch {
	case len(ids) == 0:
		return nil, common.NewRecipeNotFound(ref.Title, nil)
	case len(ids) > 1:
		common.LogWarn("食譜標題有歧義",
			zap.String("title", ref.Title),
			zap.Int("matches", len(ids)),
		)
		return nil, common.NewAmbiguousTitle(ref.Title, len(ids))
	}

	recipe, err := c.getByID(ctx, ids[0])
	if err != nil {
		return nil, err
	}
	if recipe.Title == "" {
		recipe.Title = ref.Title
	}
	return recipe, nil
}

// getByID 以 ID 取得食譜詳情並正規化
func (c *Client) getByID(ctx context.Context, id string) (*common.Recipe, error) {
	payload, err := c.get(ctx, "/recipe2-api/search-recipe/"+id, nil)
	if err != nil {
		if common.ErrorStatus(err) == http.StatusNotFound {
			return nil, common.NewRecipeNotFound(id, err)
		}
		return nil, err
	}

	recipe := normalizeRecipePayload(payload)
	if recipe == nil || len(recipe.Ingredients) == 0 {
		return nil, common.NewRecipeNotFound(id, nil)
	}
	if recipe.ID == "" {
		recipe.ID = id
	}
	return recipe, nil
}

// get 發送 GET 請求；429 時依 Retry-After 重試一次
func (c *Client) get(ctx context.Context, path string, params map[string]string) (map[string]interface{}, error) {
	var resp *resty.Response
	var err error

	for attempt := 0; attempt < 2; attempt++ {
		start := time.Now()
		resp, err = c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		common.LogUpstreamCall("recipedb", path, time.Since(start), err)

		if err != nil {
			return nil, common.NewError(common.ErrCodeServiceUnavailable,
				fmt.Sprintf("RecipeDB request failed for %s", path),
				http.StatusBadGateway, err)
		}

		if resp.StatusCode() != http.StatusTooManyRequests {
			break
		}

		if attempt == 0 {
			delay := retryDelay(resp.Header().Get("Retry-After"))
			common.LogWarn("RecipeDB 限流，等待後重試",
				zap.Duration("delay", delay),
				zap.String("path", path),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, common.NewError(common.ErrCodeRequestTimeout,
					fmt.Sprintf("RecipeDB request cancelled for %s", path),
					http.StatusRequestTimeout, ctx.Err())
			}
		}
	}

	if resp.StatusCode() != http.StatusOK {
		status := resp.StatusCode()
		apiError := extractAPIError(resp.Body())
		// 上游把授權錯誤混在各種狀態碼裡，統一辨識
		if looksLikeAuthError(apiError) {
			status = http.StatusUnauthorized
		}
		message := fmt.Sprintf("RecipeDB request failed for %s: HTTP %d", path, status)
		if apiError != "" {
			message += " " + apiError
		}
		return nil, common.NewError(common.ErrCodeServiceUnavailable, message, status, nil)
	}

	var payload map[string]interface{}
	if err := common.ParseJSONBytes(resp.Body(), &payload); err != nil {
		return nil, common.NewError(common.ErrCodeServiceUnavailable,
			fmt.Sprintf("RecipeDB returned non-JSON response for %s", path),
			http.StatusBadGateway, err)
	}

	return payload, nil
}

// retryDelay 解析 Retry-After 標頭，最少等 0.5 秒
func retryDelay(header string) time.Duration {
	delay := time.Second
	if header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil {
			if seconds < 0.5 {
				seconds = 0.5
			}
			delay = time.Duration(seconds * float64(time.Second))
		}
	}
	return delay
}

// extractAPIError 從錯誤回應體取出可讀訊息
func extractAPIError(body []byte) string {
	var payload map[string]interface{}
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"error", "message", "detail"} {
		if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// looksLikeAuthError 判斷錯誤訊息是否為授權問題
func looksLikeAuthError(errorText string) bool {
	if errorText == "" {
		return false
	}
	lowered := strings.ToLower(errorText)
	markers := []string{
		"invalid api key",
		"api key is not provided",
		"apikey is not provided",
		"only bearer token is allowed",
		"not enough tokens",
		"unauthorized",
		"forbidden",
		"token expired",
	}
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// extractRecipeList 從搜尋回應中取出食譜列
func extractRecipeList(payload map[string]interface{}) []map[string]interface{} {
	candidates := []interface{}{
		payload["recipes"],
		payload["data"],
	}
	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		candidates = append(candidates, nested["data"], nested["recipes"])
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

// distinctRecipeIDs 收集搜尋結果中不重複的食譜 ID，保持出現順序
func distinctRecipeIDs(matches []map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, match := range matches {
		id := stringField(match, "Recipe_id", "recipe_id", "id")
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// normalizeRecipePayload 將上游兩種回應形狀正規化為 Recipe
func normalizeRecipePayload(payload map[string]interface{}) *common.Recipe {
	// 形狀一：{recipe: {...}, ingredients: [...]}
	if recipeMap, ok := payload["recipe"].(map[string]interface{}); ok {
		if rawIngredients, ok := payload["ingredients"].([]interface{}); ok {
			return buildRecipe(recipeMap, rawIngredients)
		}
	}

	// 形狀二：{payload: {data: {... ingredients: [...]}}}
	if nested, ok := payload["payload"].(map[string]interface{}); ok {
		if data, ok := nested["data"].(map[string]interface{}); ok {
			rawIngredients, _ := data["ingredients"].([]interface{})
			return buildRecipe(data, rawIngredients)
		}
	}

	return nil
}

// buildRecipe 組裝 Recipe，合併食材來源並去重
func buildRecipe(recipeMap map[string]interface{}, rawIngredients []interface{}) *common.Recipe {
	recipe := &common.Recipe{
		ID:       stringField(recipeMap, "Recipe_id", "recipe_id", "id"),
		Title:    stringField(recipeMap, "Recipe_title", "recipe_title", "title"),
		Region:   stringField(recipeMap, "Region", "region"),
		PrepTime: stringField(recipeMap, "prep_time", "Prep_time"),
		CookTime: stringField(recipeMap, "cook_time", "Cook_time"),
	}

	seen := make(map[string]struct{})
	addName := func(value interface{}) {
		name, ok := value.(string)
		if !ok {
			return
		}
		cleaned := strings.TrimSpace(name)
		if cleaned == "" {
			return
		}
		key := strings.ToLower(cleaned)
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		recipe.Ingredients = append(recipe.Ingredients, cleaned)
	}

	addFromList := func(items []interface{}) {
		for _, item := range items {
			switch v := item.(type) {
			case map[string]interface{}:
				addName(firstNonEmpty(v, "ingredient", "name", "ingredient_name", "ingredient_Phrase"))
			case string:
				addName(v)
			}
		}
	}

	addFromList(rawIngredients)
	if embedded, ok := recipeMap["ingredients"].([]interface{}); ok {
		addFromList(embedded)
	}

	return recipe
}

// stringField 依序取第一個非空字串欄位
func stringField(m map[string]interface{}, keys ...string) string {
	value := firstNonEmpty(m, keys...)
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	// 上游偶爾把 ID 回成數字
	if n, ok := value.(fmt.Stringer); ok {
		return n.String()
	}
	return ""
}

// firstNonEmpty 依序取第一個非空欄位值
func firstNonEmpty(m map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if value, ok := m[key]; ok && value != nil {
			if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
				continue
			}
			return value
		}
	}
	return nil
}
