package common

import (
	"strings"
)

// Recipe 食譜基本資料與食材序列
// 核心只關心 Ingredients 順序；其餘欄位為展示用 metadata
type Recipe struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Region      string   `json:"region,omitempty"`
	PrepTime    string   `json:"prep_time,omitempty"`
	CookTime    string   `json:"cook_time,omitempty"`
	Ingredients []string `json:"ingredients"` // 順序有意義，允許重複
}

// RecipeRef 食譜查詢參照：ID 與標題擇一
type RecipeRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

// String 回傳可讀的參照描述
func (r RecipeRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Title
}

// IsZero 檢查參照是否為空
func (r RecipeRef) IsZero() bool {
	return r.ID == "" && r.Title == ""
}

// FormatIngredientList 格式化食材清單（展示用）
func FormatIngredientList(names []string) string {
	if len(names) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("、")
		}
		sb.WriteString(name)
	}
	return sb.String()
}
