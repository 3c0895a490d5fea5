package substitution

import (
	"testing"

	"flavor-remix/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		input string
		want  Constraint
	}{
		{"", ConstraintNone},
		{"none", ConstraintNone},
		{"vegan", ConstraintVegan},
		{"Vegan", ConstraintVegan},
		{" dairy-free ", ConstraintDairyFree},
		{"gluten-free", ConstraintGlutenFree},
		{"nut-free", ConstraintNutFree},
	}

	for _, tt := range tests {
		got, err := ParseConstraint(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseConstraintUnknown(t *testing.T) {
	_, err := ParseConstraint("keto")

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeUnsupportedConstraint))
}

func TestConstraintAllowsByName(t *testing.T) {
	assert.False(t, ConstraintVegan.Allows("ghee", nil))
	assert.False(t, ConstraintVegan.Allows("Heavy Cream", nil))
	assert.False(t, ConstraintNutFree.Allows("almond milk", nil))
	assert.False(t, ConstraintGlutenFree.Allows("wheat flour", nil))

	assert.True(t, ConstraintVegan.Allows("coconut oil", nil))
	assert.True(t, ConstraintGlutenFree.Allows("rice", nil))
	assert.True(t, ConstraintVegetarian.Allows("cheese", nil))
}

func TestConstraintAllowsByCategoryToken(t *testing.T) {
	// 名稱本身乾淨，但類別 metadata 暴露禁用類別
	assert.False(t, ConstraintDairyFree.Allows("margarine", []string{"category:dairy"}))
	assert.True(t, ConstraintDairyFree.Allows("margarine", []string{"category:plant"}))
}

func TestConstraintNoneAllowsEverything(t *testing.T) {
	assert.True(t, ConstraintNone.Allows("beef", []string{"category:meat"}))
}

func TestConstraintAllowsIdempotent(t *testing.T) {
	first := ConstraintVegan.Allows("tofu", []string{"category:plant"})
	second := ConstraintVegan.Allows("tofu", []string{"category:plant"})

	assert.Equal(t, first, second)
}
