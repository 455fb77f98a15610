package gateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/database"
	"taskboard/internal/gateway"
	"taskboard/internal/handlers"
	"taskboard/internal/models"
	"taskboard/internal/realtime"
	"taskboard/internal/routes"
	"taskboard/internal/testutil"
)

const apiKey = "test-anon-key"

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	srv := httptest.NewServer(routes.SetupRoutes(routes.Options{APIKey: apiKey}))
	t.Cleanup(srv.Close)
	handlers.Configure(handlers.Settings{PublicURL: srv.URL})
	t.Cleanup(func() { handlers.Configure(handlers.Settings{PublicURL: "http://localhost:8008"}) })
	return srv
}

func signedInClient(t *testing.T, srv *httptest.Server, email string) (*gateway.Client, *gateway.Session) {
	t.Helper()
	c := gateway.New(srv.URL, apiKey)
	s, err := c.SignUp(context.Background(), gateway.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return c, s
}

func TestAuthLifecycle(t *testing.T) {
	srv := newGateway(t)
	ctx := context.Background()
	c := gateway.New(srv.URL, apiKey)

	var mu sync.Mutex
	var seen []gateway.AuthEvent
	unsubscribe := c.OnAuthStateChange(func(e gateway.AuthEvent, _ *gateway.Session) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e)
	})
	defer unsubscribe()

	s, err := c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = c.SignUp(ctx, gateway.Credentials{Email: "user@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, "user@example.com", s.User.Email)

	u, err := c.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, s.User.ID, u.ID)

	refreshed, err := c.RefreshSession(ctx)
	require.NoError(t, err)
	require.NotEqual(t, s.AccessToken, refreshed.AccessToken)

	require.NoError(t, c.SignOut(ctx))
	s, err = c.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, s)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []gateway.AuthEvent{gateway.SignedIn, gateway.TokenRefreshed, gateway.SignedOut}, seen)
}

func TestSignIn_BadCredentials(t *testing.T) {
	srv := newGateway(t)
	c := gateway.New(srv.URL, apiKey)

	_, err := c.SignIn(context.Background(), gateway.Credentials{Email: "nobody@example.com", Password: "secret1"})
	var apiErr *gateway.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestWrongAPIKey(t *testing.T) {
	srv := newGateway(t)
	c := gateway.New(srv.URL, "wrong")

	_, err := c.SignIn(context.Background(), gateway.Credentials{Email: "a@example.com", Password: "secret1"})
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
}

func TestTaskWithSubTasksRoundTrip(t *testing.T) {
	srv := newGateway(t)
	ctx := context.Background()
	c, _ := signedInClient(t, srv, "user@example.com")

	task, err := c.InsertTask(ctx, gateway.NewTask{
		Title:       "Plan the team offsite",
		Description: "Book a venue and draft the agenda for two days",
		Priority:    models.PriorityMedium,
		Category:    models.CategoryPlanning,
		DueDate:     "2025-11-03",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusTodo, task.Status)

	created, err := c.InsertSubTasks(ctx, []gateway.NewSubTask{
		{TaskID: task.ID, Title: "Book venue"},
		{TaskID: task.ID, Title: "Draft agenda"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].SubTasks, 2)
	require.Equal(t, "0/2", tasks[0].Progress().String())

	done := true
	_, err = c.UpdateSubTask(ctx, created[0].ID, gateway.SubTaskPatch{Status: &done})
	require.NoError(t, err)
	require.NoError(t, c.UpdateTaskStatus(ctx, task.ID, models.StatusInWork))

	got, err := c.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, "1/2", got.Progress().String())
	require.Equal(t, models.StatusInWork, got.Status)

	stats, err := c.TaskStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["In Work"])
	assert.Equal(t, int64(1), stats["total"])

	require.NoError(t, c.DeleteTask(ctx, task.ID))
	_, err = c.GetTask(ctx, task.ID)
	require.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestProfileAndStorage(t *testing.T) {
	srv := newGateway(t)
	ctx := context.Background()
	c, s := signedInClient(t, srv, "user@example.com")

	_, err := c.InsertProfile(ctx, models.UserProfile{ID: s.User.ID, Username: "user"})
	require.NoError(t, err)

	res, err := c.Upload(ctx, "images", "1-me.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, c.PublicURL("images", "1-me.png"), res.URL)

	_, err = c.Upload(ctx, "images", "1-me.png", "image/png", strings.NewReader("png"))
	require.ErrorIs(t, err, gateway.ErrConflict)

	resp, err := http.Get(res.URL)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "png", string(body))

	image := res.URL
	p, err := c.UpdateProfile(ctx, s.User.ID, gateway.ProfilePatch{ProfileImage: &image})
	require.NoError(t, err)
	require.Equal(t, image, p.ProfileImage)

	removed, err := c.Remove(ctx, "images", "1-me.png")
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
}

func nextEvent(t *testing.T, stream realtime.Stream) realtime.ChangeEvent {
	t.Helper()
	select {
	case evt, ok := <-stream.Events():
		require.True(t, ok, "stream closed")
		return evt
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
		return realtime.ChangeEvent{}
	}
}

func TestSubscribe_DeliversOwnChangesOnly(t *testing.T) {
	srv := newGateway(t)
	ctx := context.Background()
	alice, aliceSession := signedInClient(t, srv, "alice@example.com")
	bob, _ := signedInClient(t, srv, "bob@example.com")

	stream, err := alice.Subscribe(ctx, realtime.TableTasks, realtime.EqFilter("user_id", aliceSession.User.ID))
	require.NoError(t, err)
	defer stream.Close()

	newTask := gateway.NewTask{
		Title:       "Review pull requests",
		Description: "Go through every open pull request today",
		Priority:    models.PriorityLow,
		Category:    models.CategoryClient,
		DueDate:     "2025-11-03",
	}
	_, err = bob.InsertTask(ctx, newTask)
	require.NoError(t, err)
	task, err := alice.InsertTask(ctx, newTask)
	require.NoError(t, err)

	evt := nextEvent(t, stream)
	require.Equal(t, realtime.EventInsert, evt.Type)
	require.Contains(t, string(evt.New), task.ID)

	require.NoError(t, stream.Close())
	select {
	case _, ok := <-stream.Events():
		require.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("stream not closed")
	}
}

func TestSubscribe_RequiresSession(t *testing.T) {
	srv := newGateway(t)
	c := gateway.New(srv.URL, apiKey)

	_, err := c.Subscribe(context.Background(), realtime.TableTasks, "")
	require.True(t, errors.Is(err, gateway.ErrNoSession))
}
