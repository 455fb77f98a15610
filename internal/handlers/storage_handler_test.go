package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
)

func storageRouter() *gin.Engine {
	r := gin.New()
	r.GET("/storage/v1/object/public/:bucket/:name", GetPublicObject)
	p := protected(r)
	p.POST("/storage/v1/object/:bucket/:name", UploadObject)
	p.DELETE("/storage/v1/object/:bucket", RemoveObjects)
	return r
}

func upload(t *testing.T, r http.Handler, path string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	token, _, err := auth.GenerateToken("u-1", "u-1@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStorage_UploadServeRemove(t *testing.T) {
	setupDB(t)
	r := storageRouter()

	w := upload(t, r, "/storage/v1/object/images/1700000000000-me.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "/storage/v1/object/public/images/1700000000000-me.png")

	w = upload(t, r, "/storage/v1/object/images/1700000000000-me.png", []byte("again"))
	require.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/images/1700000000000-me.png", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/storage/v1/object/images", "u-1", map[string]any{
		"prefixes": []string{"1700000000000-me.png", "missing.png"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"removed":1}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/images/1700000000000-me.png", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorage_UploadLimit(t *testing.T) {
	setupDB(t)
	Configure(Settings{MaxUploadBytes: 4})
	t.Cleanup(func() { Configure(Settings{MaxUploadBytes: 5 << 20}) })
	r := storageRouter()

	w := upload(t, r, "/storage/v1/object/images/big.png", []byte("too-large"))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStorage_RemoveOnlyOwnObjects(t *testing.T) {
	setupDB(t)
	r := storageRouter()
	require.Equal(t, http.StatusOK, upload(t, r, "/storage/v1/object/images/mine.png", []byte("x")).Code)

	w := doJSON(t, r, http.MethodDelete, "/storage/v1/object/images", "u-2", map[string]any{
		"prefixes": []string{"mine.png"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"removed":0}`, w.Body.String())
}
