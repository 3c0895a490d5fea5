package substitution

import (
	"flavor-remix/internal/pkg/common"
)

// SimilarityResult 兩組風味 token 的相似度細節
// 每次比較現算，不落地
type SimilarityResult struct {
	Jaccard      float64  `json:"jaccard"`
	Dice         float64  `json:"dice"`
	OverlapCount int      `json:"overlap_count"`
	OverlapTerms []string `json:"overlap_terms"`
}

// Suggestion 單一替代建議
type Suggestion struct {
	Ingredient string           `json:"ingredient"`
	Similarity SimilarityResult `json:"similarity"`
	Rationale  string           `json:"rationale"`
}

// RankRequest 替代排序請求
type RankRequest struct {
	Target     string   // 要被替換的目標食材
	Candidates []string // 候選名單；空則使用預設候選池
	Constraint string   // 飲食限制標籤；空視為 none
	Limit      int      // 回傳上限；0 使用預設值
}

// RankResult 替代排序結果
type RankResult struct {
	Target                string       `json:"target"`
	Suggestions           []Suggestion `json:"suggestions"`
	AppliedConstraint     string       `json:"applied_constraint"`
	ConstraintFilteredOut int          `json:"constraint_filtered_out"`
	CandidatesScored      int          `json:"candidates_scored"`
	CandidatesSkipped     int          `json:"candidates_skipped"` // 風味資料取不到而剔除的候選數
}

// ResolveRequest 整道菜模式的請求：先定位食譜中的食材再排序
type ResolveRequest struct {
	RecipeRef  common.RecipeRef
	Ingredient string   // 使用者輸入的「要換掉的食材」
	Candidates []string // 同 RankRequest
	Constraint string
	Limit      int
}

// ResolveResult 整道菜模式的結果
type ResolveResult struct {
	RankResult
	Recipe            *common.Recipe `json:"recipe"`
	MatchedIngredient string         `json:"matched_ingredient"`
	MatchConfidence   float64        `json:"match_confidence"`
	MatchStrategy     string         `json:"match_strategy"`
}

// Match 食材比對結果
type Match struct {
	Entry      string  // 食譜中命中的原始條目
	Index      int     // 條目在序列中的位置
	Confidence float64 // 比對信心值 [0,1]
	Strategy   string  // 命中的策略名稱
}
