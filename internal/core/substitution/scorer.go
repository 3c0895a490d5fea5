package substitution

import (
	"math"
	"sort"
)

// Similarity 計算兩組風味 token 的 Jaccard 與 Dice 相似度
// token 視為不透明識別字，不在此做任何正規化；兩組皆空時相似度定義為 0
// 純函數：相同輸入必得相同輸出
func Similarity(a, b []string) SimilarityResult {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return SimilarityResult{OverlapTerms: []string{}}
	}

	overlap := make([]string, 0)
	for token := range setA {
		if _, ok := setB[token]; ok {
			overlap = append(overlap, token)
		}
	}
	sort.Strings(overlap)

	unionSize := len(setA) + len(setB) - len(overlap)

	return SimilarityResult{
		Jaccard:      round4(float64(len(overlap)) / float64(unionSize)),
		Dice:         round4(2 * float64(len(overlap)) / float64(len(setA)+len(setB))),
		OverlapCount: len(overlap),
		OverlapTerms: overlap,
	}
}

// toSet 將切片轉為集合（去重）
func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}

// round4 四捨五入到小數點後 4 位
// 資料來源更新間分數只保證 4 位有效數字的穩定性
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
