package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"taskboard/internal/board"
	"taskboard/internal/database"
	"taskboard/internal/gateway"
	"taskboard/internal/models"
	"taskboard/internal/routes"
	"taskboard/internal/testutil"
)

const apiKey = "test-anon-key"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand("1.2.3", &out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, "taskboard 1.2.3\n", out)
}

func TestRenderBoard(t *testing.T) {
	cols := []board.Column{
		{Status: models.StatusTodo, Tasks: []models.Task{{
			Title:    "Prepare the launch",
			Priority: models.PriorityHigh,
			Category: models.CategoryPlanning,
			DueDate:  "2025-10-30",
			SubTasks: []models.SubTask{{Status: true}, {Status: false}},
		}}},
		{Status: models.StatusInWork},
		{Status: models.StatusInProgress},
		{Status: models.StatusDone, Tasks: []models.Task{{
			Title:    "Ship it",
			Priority: models.PriorityLow,
			Category: models.CategoryClient,
			DueDate:  "2025-11-01",
			SubTasks: []models.SubTask{{Status: true}},
		}}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderBoard(&buf, cols))
	out := buf.String()
	require.Contains(t, out, "TODO (1)")
	require.Contains(t, out, "IN WORK (0)")
	require.Contains(t, out, "DONE (1)")
	require.Contains(t, out, "1/2")
	require.Contains(t, out, "1/1 done")
	require.Less(t, strings.Index(out, "TODO"), strings.Index(out, "IN PROGRESS"))
}

func TestSummary(t *testing.T) {
	got := summary(gateway.TaskStats{"Todo": 2, "Done": 1, "total": 3})
	require.Equal(t, "Total 3: Todo 2, In Work 0, In Progress 0, Done 1", got)
}

func setGatewayEnv(t *testing.T, url string) {
	t.Helper()
	t.Setenv("GATEWAY_URL", url)
	t.Setenv("GATEWAY_API_KEY", apiKey)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("TASKBOARD_LANG", "en")
}

func TestBoardCommand_RejectsBadEmail(t *testing.T) {
	setGatewayEnv(t, "http://127.0.0.1:1")

	_, err := run(t, "board", "--email", "bad-email", "--password", "secret1")
	require.ErrorContains(t, err, "Invalid email format")
}

func TestBoardCommand_PrintsColumns(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db
	srv := httptest.NewServer(routes.SetupRoutes(routes.Options{APIKey: apiKey}))
	defer srv.Close()

	ctx := context.Background()
	c := gateway.New(srv.URL, apiKey)
	_, err = c.SignUp(ctx, gateway.Credentials{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	task, err := c.InsertTask(ctx, gateway.NewTask{
		Title:       "Prepare the launch",
		Description: "List every step for the launch day",
		Priority:    models.PriorityHigh,
		Category:    models.CategoryPlanning,
		DueDate:     "2025-10-30",
	})
	require.NoError(t, err)
	_, err = c.InsertSubTasks(ctx, []gateway.NewSubTask{
		{TaskID: task.ID, Title: "Book venue"},
		{TaskID: task.ID, Title: "Draft agenda"},
	})
	require.NoError(t, err)
	require.NoError(t, c.SignOut(ctx))

	setGatewayEnv(t, srv.URL)
	t.Setenv("TASKBOARD_EMAIL", "user@example.com")
	t.Setenv("TASKBOARD_PASSWORD", "secret1")

	out, err := run(t, "board")
	require.NoError(t, err)
	require.Contains(t, out, "TODO (1)")
	require.Contains(t, out, "Prepare the launch")
	require.Contains(t, out, "0/2")
	require.Contains(t, out, "Total 1: Todo 1")
}

func TestIsLoopback(t *testing.T) {
	require.True(t, isLoopback("127.0.0.1:5173"))
	require.True(t, isLoopback("localhost:5173"))
	require.True(t, isLoopback("[::1]:5173"))
	require.False(t, isLoopback(":5173"))
	require.False(t, isLoopback("0.0.0.0:5173"))
	require.False(t, isLoopback("192.168.1.10:5173"))
	require.False(t, isLoopback("not-an-address"))
}

func TestServeCommand_RefusesRemoteAddress(t *testing.T) {
	setGatewayEnv(t, "http://127.0.0.1:1")

	_, err := run(t, "serve", "--addr", "0.0.0.0:5173")
	require.ErrorIs(t, err, ErrRemoteAddress)
	require.ErrorContains(t, err, "--allow-remote")
}
