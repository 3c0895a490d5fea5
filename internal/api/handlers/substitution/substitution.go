package substitution

import (
	"net/http"

	"flavor-remix/internal/core/profile"
	substitutionCore "flavor-remix/internal/core/substitution"
	"flavor-remix/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CompareRequest 比較兩個食材的風味相似度
type CompareRequest struct {
	IngredientA string `json:"ingredient_a" binding:"required"` // 食材 A
	IngredientB string `json:"ingredient_b" binding:"required"` // 食材 B
}

// SubstitutesRequest 對目標食材排序候選替代
type SubstitutesRequest struct {
	Target     string   `json:"target" binding:"required"`  // 要被替換的食材
	Candidates []string `json:"candidates,omitempty"`       // 候選名單，省略時使用預設候選池
	Constraint string   `json:"constraint,omitempty"`       // 飲食限制（none/vegan/vegetarian/dairy-free/gluten-free/nut-free）
	Limit      int      `json:"limit,omitempty"`            // 回傳上限，預設 5
}

// ReplaceRequest 整道菜模式：指定食譜與要換掉的食材
type ReplaceRequest struct {
	RecipeID    string   `json:"recipe_id,omitempty"`            // 食譜 ID，與標題擇一
	RecipeTitle string   `json:"recipe_title,omitempty"`         // 食譜標題
	Ingredient  string   `json:"ingredient" binding:"required"`  // 要換掉的食材
	Candidates  []string `json:"candidates,omitempty"`
	Constraint  string   `json:"constraint,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// Handler 替代建議處理程序
type Handler struct {
	ranker     *substitutionCore.Ranker
	profileSvc *profile.Service
}

// NewHandler 創建替代建議處理程序
func NewHandler(ranker *substitutionCore.Ranker, profileSvc *profile.Service) *Handler {
	return &Handler{
		ranker:     ranker,
		profileSvc: profileSvc,
	}
}

// HandleCompare 比較兩個食材的風味相似度
func (h *Handler) HandleCompare(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	common.LogInfo("開始處理相似度比較請求",
		zap.String("request_id", requestID),
		zap.String("ingredient_a", req.IngredientA),
		zap.String("ingredient_b", req.IngredientB),
	)

	result, err := h.ranker.Compare(c.Request.Context(), req.IngredientA, req.IngredientB)
	if err != nil {
		writeError(c, requestID, "相似度比較失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredient_a": req.IngredientA,
		"ingredient_b": req.IngredientB,
		"similarity":   result,
	})
}

// HandleSubstitutes 對目標食材排序候選替代
func (h *Handler) HandleSubstitutes(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req SubstitutesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	common.LogInfo("開始處理替代排序請求",
		zap.String("request_id", requestID),
		zap.String("target", req.Target),
		zap.Int("candidates", len(req.Candidates)),
		zap.String("constraint", req.Constraint),
	)

	result, err := h.ranker.RankSubstitutes(c.Request.Context(), substitutionCore.RankRequest{
		Target:     req.Target,
		Candidates: req.Candidates,
		Constraint: req.Constraint,
		Limit:      req.Limit,
	})
	if err != nil {
		writeError(c, requestID, "替代排序失敗", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleReplace 整道菜模式：先定位食譜食材再排序替代
func (h *Handler) HandleReplace(c *gin.Context) {
	requestID := ensureRequestID(c)

	var req ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "code": common.ErrCodeInvalidRequest})
		return
	}

	ref := common.RecipeRef{ID: req.RecipeID, Title: req.RecipeTitle}
	if ref.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "必須提供 recipe_id 或 recipe_title",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	common.LogInfo("開始處理整道菜替代請求",
		zap.String("request_id", requestID),
		zap.String("recipe_ref", ref.String()),
		zap.String("ingredient", req.Ingredient),
	)

	result, err := h.ranker.ResolveAndRank(c.Request.Context(), substitutionCore.ResolveRequest{
		RecipeRef:  ref,
		Ingredient: req.Ingredient,
		Candidates: req.Candidates,
		Constraint: req.Constraint,
		Limit:      req.Limit,
	})
	if err != nil {
		writeError(c, requestID, "整道菜替代失敗", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleProfile 查詢單一食材的風味 profile（除錯/維運用）
func (h *Handler) HandleProfile(c *gin.Context) {
	requestID := ensureRequestID(c)

	ingredient := c.Query("ingredient")
	if ingredient == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "缺少 ingredient 參數",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	tokens, err := h.profileSvc.GetProfile(c.Request.Context(), ingredient)
	if err != nil {
		writeError(c, requestID, "風味 profile 查詢失敗", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredient": ingredient,
		"profile":    tokens,
		"count":      len(tokens),
	})
}

// ensureRequestID 確保每個請求都有 X-Request-ID
func ensureRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// writeError 依錯誤詞彙回應對應的狀態碼與代碼
// 致命錯誤不會夾帶任何看似成功的部分結果
func writeError(c *gin.Context, requestID, logMsg string, err error) {
	common.LogError(logMsg,
		zap.Error(err),
		zap.String("request_id", requestID),
	)
	c.JSON(common.ErrorStatus(err), gin.H{
		"error": err.Error(),
		"code":  common.ErrorCode(err),
	})
}
