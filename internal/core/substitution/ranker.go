package substitution

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"go.uber.org/zap"
)

// ProfileProvider 風味 profile 供應者
type ProfileProvider interface {
	GetProfile(ctx context.Context, name string) ([]string, error)
}

// CandidateSource 預設候選池供應者
type CandidateSource interface {
	DefaultCandidates(ctx context.Context, target string) ([]string, error)
}

// RecipeProvider 食譜供應者
type RecipeProvider interface {
	GetRecipe(ctx context.Context, ref common.RecipeRef) (*common.Recipe, error)
}

// Ranker 替代排序器：解析 → 評分 → 過濾 → 排序 → 截斷
// 所有依賴都由建構時注入，核心不持有任何全域狀態
type Ranker struct {
	config     *config.Config
	profiles   ProfileProvider
	candidates CandidateSource
	recipes    RecipeProvider
}

// NewRanker 創建替代排序器
func NewRanker(cfg *config.Config, profiles ProfileProvider, candidates CandidateSource, recipes RecipeProvider) *Ranker {
	return &Ranker{
		config:     cfg,
		profiles:   profiles,
		candidates: candidates,
		recipes:    recipes,
	}
}

// Compare 比較兩個食材的風味相似度
// 兩邊 profile 併發抓取；任一邊查無資料即失敗，錯誤會指名是哪個食材
func (r *Ranker) Compare(ctx context.Context, ingredientA, ingredientB string) (*SimilarityResult, error) {
	var tokensA, tokensB []string
	var errA, errB error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tokensA, errA = r.profiles.GetProfile(ctx, ingredientA)
	}()
	go func() {
		defer wg.Done()
		tokensB, errB = r.profiles.GetProfile(ctx, ingredientB)
	}()
	wg.Wait()

	if errA != nil {
		return nil, errA
	}
	if errB != nil {
		return nil, errB
	}

	result := Similarity(tokensA, tokensB)
	return &result, nil
}

// candidateProfile 候選抓取結果，依索引回填確保組裝順序確定
type candidateProfile struct {
	name   string
	tokens []string
	err    error
}

// RankSubstitutes 對目標食材排序候選替代
func (r *Ranker) RankSubstitutes(ctx context.Context, req RankRequest) (*RankResult, error) {
	constraint, err := ParseConstraint(req.Constraint)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = r.config.Ranker.DefaultLimit
	}
	if limit < 0 {
		return nil, common.NewError(common.ErrCodeInvalidRequest,
			fmt.Sprintf("limit 必須為正整數，收到 %d", req.Limit),
			http.StatusBadRequest, nil)
	}

	target := strings.ToLower(strings.TrimSpace(req.Target))

	// 目標 profile 抓不到是整個請求的致命錯誤
	targetTokens, err := r.profiles.GetProfile(ctx, target)
	if err != nil {
		return nil, err
	}

	names, err := r.resolveCandidates(ctx, target, req.Candidates)
	if err != nil {
		return nil, err
	}

	profiles := r.fetchCandidateProfiles(ctx, names)

	result := &RankResult{
		Target:            target,
		Suggestions:       []Suggestion{},
		AppliedConstraint: constraint.String(),
	}

	for _, candidate := range profiles {
		// 單一候選抓不到資料不致命：剔除並排除在覆蓋率分母之外
		if candidate.err != nil {
			result.CandidatesSkipped++
			common.LogDebug("候選風味資料取不到，剔除",
				zap.String("candidate", candidate.name),
				zap.Error(candidate.err),
			)
			continue
		}

		if !constraint.Allows(candidate.name, categoryTokens(candidate.tokens)) {
			result.ConstraintFilteredOut++
			continue
		}

		similarity := Similarity(targetTokens, candidate.tokens)
		result.CandidatesScored++
		result.Suggestions = append(result.Suggestions, Suggestion{
			Ingredient: candidate.name,
			Similarity: similarity,
			Rationale:  buildRationale(similarity),
		})
	}

	sortSuggestions(result.Suggestions)
	if len(result.Suggestions) > limit {
		result.Suggestions = result.Suggestions[:limit]
	}

	// 建議回傳時把 taxonomy 前綴清掉，保留人類可讀的詞
	for i := range result.Suggestions {
		result.Suggestions[i].Similarity.OverlapTerms = cleanTerms(result.Suggestions[i].Similarity.OverlapTerms)
	}

	return result, nil
}

// ResolveAndRank 整道菜模式：先在食譜中定位要換掉的食材，再排序替代
func (r *Ranker) ResolveAndRank(ctx context.Context, req ResolveRequest) (*ResolveResult, error) {
	recipe, err := r.recipes.GetRecipe(ctx, req.RecipeRef)
	if err != nil {
		return nil, err
	}

	match, err := MatchIngredient(req.Ingredient, recipe.Ingredients, r.config.Matcher)
	if err != nil {
		return nil, err
	}

	common.LogInfo("食材比對完成",
		zap.String("query", req.Ingredient),
		zap.String("matched", match.Entry),
		zap.Float64("confidence", match.Confidence),
		zap.String("strategy", match.Strategy),
		zap.String("ingredients", common.FormatIngredientList(recipe.Ingredients)),
	)

	ranked, err := r.RankSubstitutes(ctx, RankRequest{
		Target:     NormalizeIngredient(match.Entry),
		Candidates: req.Candidates,
		Constraint: req.Constraint,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &ResolveResult{
		RankResult:        *ranked,
		Recipe:            recipe,
		MatchedIngredient: match.Entry,
		MatchConfidence:   match.Confidence,
		MatchStrategy:     match.Strategy,
	}, nil
}

// resolveCandidates 決定候選名單：呼叫端提供優先，否則用預設候選池
// 一律剔除空字串、重複與目標本身
func (r *Ranker) resolveCandidates(ctx context.Context, target string, supplied []string) ([]string, error) {
	names := supplied
	if len(names) == 0 {
		pool, err := r.candidates.DefaultCandidates(ctx, target)
		if err != nil {
			return nil, common.NewError(common.ErrCodeServiceUnavailable,
				fmt.Sprintf("無法取得 %q 的預設候選池", target),
				http.StatusBadGateway, err)
		}
		names = pool
	}

	seen := make(map[string]struct{})
	deduped := make([]string, 0, len(names))
	for _, name := range names {
		cleaned := strings.ToLower(strings.TrimSpace(name))
		if cleaned == "" || cleaned == target {
			continue
		}
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		deduped = append(deduped, cleaned)
	}

	return deduped, nil
}

// fetchCandidateProfiles 以固定 worker 數併發抓取候選 profile
// 結果依原索引回填；全部完成後才開始評分，確保組裝順序確定
func (r *Ranker) fetchCandidateProfiles(ctx context.Context, names []string) []candidateProfile {
	profiles := make([]candidateProfile, len(names))
	jobs := make(chan int)

	workers := r.config.Ranker.FetchWorkers
	if workers > len(names) {
		workers = len(names)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tokens, err := r.profiles.GetProfile(ctx, names[i])
				if err != nil {
					// 單一候選取不到屬於非致命錯誤，帶上專屬代碼供剔除邏輯辨識
					err = common.NewCandidateUnavailable(names[i], err)
				}
				profiles[i] = candidateProfile{name: names[i], tokens: tokens, err: err}
			}
		}()
	}

	for i := range names {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return profiles
}

// sortSuggestions 排序：分數高者先，再比重疊數，最後依名稱確保確定性
// 目標 profile 為空時所有分數都是 0，自然退化成依名稱排序
func sortSuggestions(suggestions []Suggestion) {
	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Similarity.Jaccard != b.Similarity.Jaccard {
			return a.Similarity.Jaccard > b.Similarity.Jaccard
		}
		if a.Similarity.OverlapCount != b.Similarity.OverlapCount {
			return a.Similarity.OverlapCount > b.Similarity.OverlapCount
		}
		return a.Ingredient < b.Ingredient
	})
}

// categoryTokens 取出類別層級的 token 供限制過濾使用
func categoryTokens(tokens []string) []string {
	var categories []string
	for _, token := range tokens {
		if strings.HasPrefix(token, "category:") {
			categories = append(categories, token)
		}
	}
	return categories
}

// cleanTerms 去掉 taxonomy 前綴（entity: / category:），保留人類可讀的詞
func cleanTerms(terms []string) []string {
	cleaned := make([]string, 0, len(terms))
	for _, term := range terms {
		if idx := strings.Index(term, ":"); idx >= 0 {
			term = term[idx+1:]
		}
		if term != "" {
			cleaned = append(cleaned, term)
		}
	}
	return cleaned
}

// buildRationale 由共享 token 組出簡短的推薦理由
func buildRationale(similarity SimilarityResult) string {
	if similarity.OverlapCount == 0 {
		return "無共享風味資料"
	}

	top := cleanTerms(similarity.OverlapTerms)
	if len(top) > 3 {
		top = top[:3]
	}

	return fmt.Sprintf("共享 %d 個風味特徵，例如：%s",
		similarity.OverlapCount, strings.Join(top, "、"))
}
