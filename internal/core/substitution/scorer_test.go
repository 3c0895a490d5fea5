package substitution

import (
	"os"
	"testing"

	"flavor-remix/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func TestSimilarityOverlap(t *testing.T) {
	a := []string{"citrus", "pungent", "woody"}
	b := []string{"pungent", "woody", "floral"}

	result := Similarity(a, b)

	// 交集 {pungent, woody}，聯集 4 個
	assert.Equal(t, 0.5, result.Jaccard)
	assert.Equal(t, 0.6667, result.Dice)
	assert.Equal(t, 2, result.OverlapCount)
	assert.Equal(t, []string{"pungent", "woody"}, result.OverlapTerms)
}

func TestSimilaritySymmetric(t *testing.T) {
	a := []string{"sweet", "creamy", "nutty"}
	b := []string{"creamy", "smoky"}

	forward := Similarity(a, b)
	backward := Similarity(b, a)

	assert.Equal(t, forward, backward)
}

func TestSimilarityIdentical(t *testing.T) {
	tokens := []string{"sweet", "creamy"}

	result := Similarity(tokens, tokens)

	assert.Equal(t, 1.0, result.Jaccard)
	assert.Equal(t, 1.0, result.Dice)
	assert.Equal(t, 2, result.OverlapCount)
}

func TestSimilarityEmptySide(t *testing.T) {
	result := Similarity([]string{"sweet"}, nil)

	assert.Equal(t, 0.0, result.Jaccard)
	assert.Equal(t, 0.0, result.Dice)
	assert.Equal(t, 0, result.OverlapCount)
	require.NotNil(t, result.OverlapTerms)
	assert.Empty(t, result.OverlapTerms)
}

func TestSimilarityDeduplicatesInput(t *testing.T) {
	a := []string{"sweet", "sweet", "creamy"}
	b := []string{"sweet"}

	result := Similarity(a, b)

	// 重複 token 只算一次：交集 1，聯集 2
	assert.Equal(t, 0.5, result.Jaccard)
	assert.Equal(t, 1, result.OverlapCount)
}

func TestSimilarityRounding(t *testing.T) {
	a := []string{"a", "b"}
	b := []string{"b", "c", "d"}

	result := Similarity(a, b)

	// 1/4 與 2/5 都必須剛好 4 位小數
	assert.Equal(t, 0.25, result.Jaccard)
	assert.Equal(t, 0.4, result.Dice)
}
