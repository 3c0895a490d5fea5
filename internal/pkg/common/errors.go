package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code    string `json:"code"`              // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 支援 errors.Is / errors.As 鏈式比對
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE" // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 業務錯誤：替代引擎錯誤詞彙
	ErrCodeProfileNotFound       = "PROFILE_NOT_FOUND"      // 目標食材沒有風味資料
	ErrCodeRecipeNotFound        = "RECIPE_NOT_FOUND"       // 食譜不存在
	ErrCodeNoMatchFound          = "NO_MATCH_FOUND"         // 無法在食譜中對應到食材
	ErrCodeAmbiguousTitle        = "AMBIGUOUS_TITLE"        // 標題對應到多個食譜
	ErrCodeUnsupportedConstraint = "UNSUPPORTED_CONSTRAINT" // 未知的飲食限制
	ErrCodeCandidateUnavailable  = "CANDIDATE_UNAVAILABLE"  // 單一候選風味資料取不到（非致命）
)

// 預定義錯誤
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "未授權的訪問", http.StatusUnauthorized, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "資源不存在", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "請求超時", http.StatusRequestTimeout, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)
)

// NewProfileNotFound 目標食材在風味資料庫中不存在
func NewProfileNotFound(ingredient string, err error) *CustomError {
	return NewError(ErrCodeProfileNotFound,
		fmt.Sprintf("找不到食材 %q 的風味資料", ingredient),
		http.StatusNotFound, err)
}

// NewRecipeNotFound 食譜查詢失敗
func NewRecipeNotFound(ref string, err error) *CustomError {
	return NewError(ErrCodeRecipeNotFound,
		fmt.Sprintf("找不到食譜 %q", ref),
		http.StatusNotFound, err)
}

// NewNoMatchFound 使用者輸入無法對應到食譜內的任何食材
func NewNoMatchFound(query string) *CustomError {
	return NewError(ErrCodeNoMatchFound,
		fmt.Sprintf("食譜中找不到與 %q 對應的食材", query),
		http.StatusNotFound, nil)
}

// NewAmbiguousTitle 標題解析出多個食譜，呼叫端必須自行消歧
func NewAmbiguousTitle(title string, count int) *CustomError {
	return NewError(ErrCodeAmbiguousTitle,
		fmt.Sprintf("標題 %q 對應到 %d 個食譜，請改用食譜 ID", title, count),
		http.StatusConflict, nil)
}

// NewUnsupportedConstraint 未知的飲食限制標籤
func NewUnsupportedConstraint(tag string) *CustomError {
	return NewError(ErrCodeUnsupportedConstraint,
		fmt.Sprintf("不支援的飲食限制 %q", tag),
		http.StatusBadRequest, nil)
}

// NewCandidateUnavailable 單一候選的風味資料取不到；呼叫端應剔除該候選而非失敗
func NewCandidateUnavailable(ingredient string, err error) *CustomError {
	return NewError(ErrCodeCandidateUnavailable,
		fmt.Sprintf("候選食材 %q 的風味資料暫時無法取得", ingredient),
		http.StatusBadGateway, err)
}

// ErrorCode 取出錯誤代碼；非 CustomError 一律視為內部錯誤
func ErrorCode(err error) string {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeInternalError
}

// ErrorStatus 取出對應的 HTTP 狀態碼
func ErrorStatus(err error) int {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// IsCode 檢查錯誤是否屬於指定代碼
func IsCode(err error, code string) bool {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
