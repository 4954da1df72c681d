package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gmc_dev_v1_202608/internal/model"
	"gmc_dev_v1_202608/internal/repository"
	"gmc_dev_v1_202608/internal/service"
)

func setupAuthCtlRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.SysUser{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	ctrl := NewAuthController(service.NewAuthService(repository.NewUserRepository(db)))

	r := gin.New()
	r.POST("/api/auth/register", ctrl.Register)
	r.POST("/api/auth/login", ctrl.Login)
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBytes, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthController_RegisterAndLogin(t *testing.T) {
	r := setupAuthCtlRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{
		"email":     "user@example.com",
		"password":  "secret123",
		"full_name": "Test User",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 重复注册同一邮箱
	w = postJSON(r, "/api/auth/register", gin.H{
		"email":    "user@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.AccessToken)
	assert.NotEmpty(t, body.Data.RefreshToken)
}

func TestAuthController_LoginWrongPassword(t *testing.T) {
	r := setupAuthCtlRouter(t)

	w := postJSON(r, "/api/auth/register", gin.H{
		"email":    "user@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/api/auth/login", gin.H{
		"email":    "user@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthController_RegisterInvalidParams(t *testing.T) {
	r := setupAuthCtlRouter(t)

	tests := []struct {
		name string
		body gin.H
	}{
		{"缺邮箱", gin.H{"password": "secret123"}},
		{"非法邮箱", gin.H{"email": "not-an-email", "password": "secret123"}},
		{"密码过短", gin.H{"email": "a@b.com", "password": "123"}},
	}
	for _, tt := range tests {
		w := postJSON(r, "/api/auth/register", tt.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tt.name)
	}
}
