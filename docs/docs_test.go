package docs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag/v2"
)

func TestSwaggerDocument(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		Swagger  string `json:"swagger"`
		BasePath string `json:"basePath"`
		Info     struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths       map[string]map[string]any `json:"paths"`
		Definitions map[string]any            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "2.0", parsed.Swagger)
	assert.Equal(t, "/api/v1", parsed.BasePath)
	assert.Equal(t, "Conversion Service API", parsed.Info.Title)

	assert.Contains(t, parsed.Paths, "/system/ping")
	assert.Contains(t, parsed.Paths, "/system/info")
	assert.Contains(t, parsed.Paths["/system/conversions"], "get")
	assert.Contains(t, parsed.Paths["/system/conversions/types"], "get")
	assert.Contains(t, parsed.Paths["/system/conversions/convert"], "post")
	assert.Contains(t, parsed.Paths["/system/conversions/history"], "get")

	for _, name := range []string{"dto.ConvertRequest", "dto.HistoryEntry", "handler.ErrorResponse"} {
		assert.Contains(t, parsed.Definitions, name)
	}
}

func TestSwaggerRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/system/conversions/convert")
}
