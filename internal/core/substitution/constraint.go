package substitution

import (
	"strings"

	"flavor-remix/internal/pkg/common"
)

// Constraint 飲食限制：封閉列舉，未知標籤在解析時就失敗
type Constraint string

const (
	ConstraintNone       Constraint = "none"
	ConstraintVegan      Constraint = "vegan"
	ConstraintVegetarian Constraint = "vegetarian"
	ConstraintDairyFree  Constraint = "dairy-free"
	ConstraintGlutenFree Constraint = "gluten-free"
	ConstraintNutFree    Constraint = "nut-free"
)

// 每個限制對應的禁用類別子字串，對候選名稱與類別 metadata 做不分大小寫檢查
// 列舉必須涵蓋所有 Constraint 常數
var disallowedSubstrings = map[Constraint][]string{
	ConstraintNone: {},
	ConstraintVegan: {
		"meat", "beef", "pork", "chicken", "lamb", "fish", "seafood", "shrimp",
		"egg", "dairy", "milk", "cream", "butter", "cheese", "ghee", "yogurt",
		"honey", "gelatin", "lard",
	},
	ConstraintVegetarian: {
		"meat", "beef", "pork", "chicken", "lamb", "fish", "seafood", "shrimp",
		"gelatin", "lard",
	},
	ConstraintDairyFree: {
		"dairy", "milk", "cream", "butter", "cheese", "ghee", "yogurt", "whey", "curd",
	},
	ConstraintGlutenFree: {
		"wheat", "flour", "barley", "rye", "malt", "semolina", "bread", "pasta",
	},
	ConstraintNutFree: {
		"nut", "almond", "cashew", "pistachio", "pecan", "hazelnut", "macadamia",
	},
}

// ParseConstraint 解析限制標籤；空字串視為 none
// 未知標籤回 UNSUPPORTED_CONSTRAINT，不允許默默放行全部候選
func ParseConstraint(tag string) (Constraint, error) {
	cleaned := strings.ToLower(strings.TrimSpace(tag))
	if cleaned == "" {
		return ConstraintNone, nil
	}

	constraint := Constraint(cleaned)
	if _, ok := disallowedSubstrings[constraint]; !ok {
		return "", common.NewUnsupportedConstraint(tag)
	}
	return constraint, nil
}

// Allows 檢查候選是否通過限制
// 同時比對候選名稱與其類別 token（例如 "category:dairy"）
func (c Constraint) Allows(name string, categoryTokens []string) bool {
	disallowed := disallowedSubstrings[c]
	if len(disallowed) == 0 {
		return true
	}

	loweredName := strings.ToLower(name)
	for _, marker := range disallowed {
		if strings.Contains(loweredName, marker) {
			return false
		}
		for _, token := range categoryTokens {
			if strings.Contains(strings.ToLower(token), marker) {
				return false
			}
		}
	}
	return true
}

// String 回傳標籤字串
func (c Constraint) String() string {
	return string(c)
}
