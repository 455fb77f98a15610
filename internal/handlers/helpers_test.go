package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/database"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/testutil"
)

func setupDB(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
}

func protected(r *gin.Engine) *gin.RouterGroup {
	return r.Group("", middleware.JWTAuthMiddleware())
}

func doJSON(t *testing.T, r http.Handler, method, path, userID string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := auth.GenerateToken(userID, userID+"@example.com")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedTask(t *testing.T, id, userID string, subTasks ...models.SubTask) models.Task {
	t.Helper()
	task := models.Task{
		ID:          id,
		UserID:      userID,
		Title:       "Write the quarterly report",
		Description: "Collect numbers from every team and summarize",
		Priority:    models.PriorityHigh,
		Category:    models.CategoryPlanning,
		Status:      models.StatusTodo,
		DueDate:     "2025-02-01",
		SubTasks:    subTasks,
	}
	require.NoError(t, database.GetDB().Create(&task).Error)
	return task
}
