package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/database"
	"taskboard/internal/models"
	"taskboard/internal/realtime"
)

func subTaskRouter() *gin.Engine {
	r := gin.New()
	p := protected(r)
	p.POST("/rest/v1/sub_tasks", CreateSubTasks)
	p.PATCH("/rest/v1/sub_tasks/:id", UpdateSubTask)
	p.DELETE("/rest/v1/sub_tasks/:id", DeleteSubTask)
	return r
}

func TestCreateSubTasks_Batch(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-batch", "batch-owner")
	events := watch(t, "batch-owner", realtime.TableSubTasks)

	w := doJSON(t, r, http.MethodPost, "/rest/v1/sub_tasks", "batch-owner", []map[string]any{
		{"task_id": "t-batch", "title": "Outline"},
		{"task_id": "t-batch", "title": "Proofread"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created []models.SubTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created, 2)
	for _, st := range created {
		require.False(t, st.Status)
		require.Equal(t, "t-batch", st.TaskID)
	}
	require.Len(t, events.received(), 2)
}

func TestCreateSubTasks_SingleObject(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-1", "u-1")

	w := doJSON(t, r, http.MethodPost, "/rest/v1/sub_tasks", "u-1", map[string]any{
		"task_id": "t-1", "title": "Outline",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateSubTasks_ForeignTaskInsertsNothing(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-1", "u-1")
	seedTask(t, "t-2", "u-2")

	w := doJSON(t, r, http.MethodPost, "/rest/v1/sub_tasks", "u-1", []map[string]any{
		{"task_id": "t-1", "title": "Mine"},
		{"task_id": "t-2", "title": "Not mine"},
	})
	require.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, database.GetDB().Model(&models.SubTask{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreateSubTasks_BlankTitle(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-1", "u-1")

	w := doJSON(t, r, http.MethodPost, "/rest/v1/sub_tasks", "u-1", []map[string]any{
		{"task_id": "t-1", "title": "   "},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateSubTask_Toggle(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-1", "u-1", models.SubTask{ID: "s-1", Title: "Draft"})

	w := doJSON(t, r, http.MethodPatch, "/rest/v1/sub_tasks/s-1", "u-1", map[string]any{"status": true})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.SubTask
	require.NoError(t, database.GetDB().First(&stored, "id = ?", "s-1").Error)
	require.True(t, stored.Status)
	require.Equal(t, "Draft", stored.Title)

	w = doJSON(t, r, http.MethodPatch, "/rest/v1/sub_tasks/s-1", "u-2", map[string]any{"status": false})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSubTask_PublishesParent(t *testing.T) {
	setupDB(t)
	r := subTaskRouter()
	seedTask(t, "t-sub-del", "sub-delete-owner", models.SubTask{ID: "s-del", Title: "Draft"})
	events := watch(t, "sub-delete-owner", realtime.TableSubTasks)

	w := doJSON(t, r, http.MethodDelete, "/rest/v1/sub_tasks/s-del", "sub-delete-owner", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	got := events.received()
	require.Len(t, got, 1)
	var old models.SubTask
	require.NoError(t, json.Unmarshal(got[0].Old, &old))
	require.Equal(t, "t-sub-del", old.TaskID)
}
