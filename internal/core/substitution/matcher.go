package substitution

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"
)

// 比對前的正規化規則
var (
	parenPattern       = regexp.MustCompile(`\([^)]*\)`)
	punctuationPattern = regexp.MustCompile(`[,;:.!?]`)
	numberPattern      = regexp.MustCompile(`^\d+([./]\d+)?$`)
)

// 數量單位詞，正規化時剔除
var unitWords = map[string]struct{}{
	"tbsp": {}, "tbs": {}, "tablespoon": {}, "tablespoons": {},
	"tsp": {}, "teaspoon": {}, "teaspoons": {},
	"cup": {}, "cups": {},
	"g": {}, "kg": {}, "gram": {}, "grams": {},
	"ml": {}, "l": {}, "liter": {}, "liters": {}, "litre": {}, "litres": {},
	"oz": {}, "ounce": {}, "ounces": {},
	"lb": {}, "lbs": {}, "pound": {}, "pounds": {},
	"pinch": {}, "dash": {},
	"clove": {}, "cloves": {},
	"slice": {}, "slices": {},
	"piece": {}, "pieces": {},
	"can": {}, "cans": {},
	"stick": {}, "sticks": {},
}

// NormalizeIngredient 正規化食材字串供比對使用
// 小寫、去除括號註記、去除數量與單位詞、壓縮空白
func NormalizeIngredient(s string) string {
	lowered := strings.ToLower(strings.TrimSpace(s))
	lowered = parenPattern.ReplaceAllString(lowered, " ")
	lowered = punctuationPattern.ReplaceAllString(lowered, " ")

	var kept []string
	for _, word := range strings.Fields(lowered) {
		if numberPattern.MatchString(word) {
			continue
		}
		if _, isUnit := unitWords[word]; isUnit {
			continue
		}
		kept = append(kept, word)
	}

	return strings.Join(kept, " ")
}

// matchStrategy 單一比對策略：純函數回傳信心值 [0,1]
// 依序嘗試，讓每個策略可以獨立測試
type matchStrategy struct {
	name      string
	score     func(query, entry string) float64
	threshold float64
}

// MatchIngredient 在食譜的食材序列中找出最能代表 query 的條目
// 策略依偏好排序：完全相符 → 包含 → 詞彙重疊；同信心值時取序列中較早的條目
// 全部低於門檻時回 NO_MATCH_FOUND，與「食譜不存在」是不同的錯誤
func MatchIngredient(query string, entries []string, cfg config.MatcherConfig) (*Match, error) {
	normalizedQuery := NormalizeIngredient(query)
	if normalizedQuery == "" {
		return nil, common.NewNoMatchFound(query)
	}

	normalized := make([]string, len(entries))
	for i, entry := range entries {
		normalized[i] = NormalizeIngredient(entry)
	}

	strategies := []matchStrategy{
		{name: "exact", score: scoreExact, threshold: 1.0},
		{name: "containment", score: scoreContainment, threshold: cfg.ContainmentFloor},
		{name: "token-overlap", score: scoreTokenOverlap, threshold: cfg.TokenOverlapThreshold},
	}

	for _, strategy := range strategies {
		bestIndex := -1
		bestConfidence := 0.0

		for i, entry := range normalized {
			if entry == "" {
				continue
			}
			confidence := strategy.score(normalizedQuery, entry)
			// 嚴格大於才換人：同信心值時保留較早出現的條目
			if confidence > bestConfidence {
				bestConfidence = confidence
				bestIndex = i
			}
		}

		if bestIndex >= 0 && bestConfidence >= strategy.threshold {
			return &Match{
				Entry:      entries[bestIndex],
				Index:      bestIndex,
				Confidence: round4(bestConfidence),
				Strategy:   strategy.name,
			}, nil
		}
	}

	return nil, common.NewNoMatchFound(query)
}

// scoreExact 完全相符
func scoreExact(query, entry string) float64 {
	if query == entry {
		return 1.0
	}
	return 0.0
}

// scoreContainment 包含比對：任一方向包含即可
// 信心值 = 短字串長度 / 長字串長度，較長的重疊得到較高信心
func scoreContainment(query, entry string) float64 {
	if !strings.Contains(entry, query) && !strings.Contains(query, entry) {
		return 0.0
	}

	queryLen := utf8.RuneCountInString(query)
	entryLen := utf8.RuneCountInString(entry)
	if queryLen == 0 || entryLen == 0 {
		return 0.0
	}

	if queryLen < entryLen {
		return float64(queryLen) / float64(entryLen)
	}
	return float64(entryLen) / float64(queryLen)
}

// scoreTokenOverlap 詞彙重疊比對：共享詞集合的 Jaccard 比例
func scoreTokenOverlap(query, entry string) float64 {
	queryWords := toSet(strings.Fields(query))
	entryWords := toSet(strings.Fields(entry))
	if len(queryWords) == 0 || len(entryWords) == 0 {
		return 0.0
	}

	shared := 0
	for word := range queryWords {
		if _, ok := entryWords[word]; ok {
			shared++
		}
	}

	union := len(queryWords) + len(entryWords) - shared
	return float64(shared) / float64(union)
}
