package recipedb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"flavor-remix/internal/infrastructure/config"
	"flavor-remix/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.UpstreamConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Timeout: 5 * time.Second,
	})
}

func TestGetRecipeByID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/recipe2-api/search-recipe/101", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"recipe": {"Recipe_id":"101","Recipe_title":"Dal Tadka","Region":"Indian"},
			"ingredients": [
				{"ingredient":"red lentils"},
				{"name":"ghee"},
				{"ingredient":"Red Lentils"}
			]
		}`))
	})

	recipe, err := client.GetRecipe(context.Background(), common.RecipeRef{ID: "101"})

	require.NoError(t, err)
	assert.Equal(t, "101", recipe.ID)
	assert.Equal(t, "Dal Tadka", recipe.Title)
	assert.Equal(t, "Indian", recipe.Region)
	// 食材不分大小寫去重，保持出現順序
	assert.Equal(t, []string{"red lentils", "ghee"}, recipe.Ingredients)
}

func TestGetRecipeByTitle(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/recipe2-api/recipebyingredient/by-ingredients-categories-title":
			assert.Equal(t, "Dal Tadka", r.URL.Query().Get("title"))
			w.Write([]byte(`{"recipes":[{"Recipe_id":"101","Recipe_title":"Dal Tadka"}]}`))
		case "/recipe2-api/search-recipe/101":
			w.Write([]byte(`{
				"recipe": {"Recipe_id":"101","Recipe_title":"Dal Tadka"},
				"ingredients": [{"ingredient":"red lentils"}]
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	recipe, err := client.GetRecipe(context.Background(), common.RecipeRef{Title: "Dal Tadka"})

	require.NoError(t, err)
	assert.Equal(t, "101", recipe.ID)
}

func TestGetRecipeAmbiguousTitle(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recipes":[
			{"Recipe_id":"101","Recipe_title":"Dal"},
			{"Recipe_id":"102","Recipe_title":"Dal"}
		]}`))
	})

	_, err := client.GetRecipe(context.Background(), common.RecipeRef{Title: "Dal"})

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeAmbiguousTitle))
	assert.Equal(t, http.StatusConflict, common.ErrorStatus(err))
}

func TestGetRecipeTitleNotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recipes":[]}`))
	})

	_, err := client.GetRecipe(context.Background(), common.RecipeRef{Title: "Nonexistent"})

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeRecipeNotFound))
}

func TestGetRecipeMissingRef(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetRecipe(context.Background(), common.RecipeRef{})

	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeInvalidRequest))
}

func TestGetRecipeRetriesOnRateLimit(t *testing.T) {
	var calls int
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0.1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"recipe": {"Recipe_id":"101","Recipe_title":"Dal Tadka"},
			"ingredients": [{"ingredient":"red lentils"}]
		}`))
	})

	recipe, err := client.GetRecipe(context.Background(), common.RecipeRef{ID: "101"})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "101", recipe.ID)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(""))
	assert.Equal(t, 2*time.Second, retryDelay("2"))
	// 最少等 0.5 秒
	assert.Equal(t, 500*time.Millisecond, retryDelay("0.1"))
	assert.Equal(t, time.Second, retryDelay("garbage"))
}

func TestLooksLikeAuthError(t *testing.T) {
	assert.True(t, looksLikeAuthError("Invalid API Key supplied"))
	assert.True(t, looksLikeAuthError("apikey is not provided"))
	assert.True(t, looksLikeAuthError("Unauthorized access"))
	assert.True(t, looksLikeAuthError("token expired, please refresh"))

	assert.False(t, looksLikeAuthError(""))
	assert.False(t, looksLikeAuthError("internal server error"))
}

func TestDistinctRecipeIDs(t *testing.T) {
	matches := []map[string]interface{}{
		{"Recipe_id": "101"},
		{"recipe_id": "102"},
		{"id": "101"},
		{"title": "no id"},
	}

	assert.Equal(t, []string{"101", "102"}, distinctRecipeIDs(matches))
}

func TestNormalizeRecipePayloadNestedShape(t *testing.T) {
	payload := map[string]interface{}{
		"payload": map[string]interface{}{
			"data": map[string]interface{}{
				"recipe_id":    "205",
				"recipe_title": "Miso Soup",
				"ingredients": []interface{}{
					map[string]interface{}{"ingredient_name": "miso paste"},
					"tofu",
				},
			},
		},
	}

	recipe := normalizeRecipePayload(payload)

	require.NotNil(t, recipe)
	assert.Equal(t, "205", recipe.ID)
	assert.Equal(t, "Miso Soup", recipe.Title)
	assert.Equal(t, []string{"miso paste", "tofu"}, recipe.Ingredients)
}

func TestNormalizeRecipePayloadUnknownShape(t *testing.T) {
	assert.Nil(t, normalizeRecipePayload(map[string]interface{}{"other": "value"}))
}
