package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	fail     bool
}

func (c *fakeClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false
	}
	c.messages = append(c.messages, message)
	return true
}

func (c *fakeClient) Close() {}

func (c *fakeClient) received() []ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChangeEvent, 0, len(c.messages))
	for _, m := range c.messages {
		var evt ChangeEvent
		_ = json.Unmarshal(m, &evt)
		out = append(out, evt)
	}
	return out
}

func taskEvent(t *testing.T, typ EventType, owner string, row map[string]any) ChangeEvent {
	t.Helper()
	var newRow, oldRow any
	if typ == EventDelete {
		oldRow = row
	} else {
		newRow = row
	}
	evt, err := NewChangeEvent(TableTasks, typ, owner, newRow, oldRow)
	require.NoError(t, err)
	return evt
}

func TestHub_PublishRoutesByOwnerAndTable(t *testing.T) {
	hub := NewHub(zap.NewNop())
	alice := &fakeClient{}
	aliceSubs := &fakeClient{}
	bob := &fakeClient{}

	hub.Register("alice", alice, TableTasks, Filter{Column: "user_id", Value: "alice"})
	hub.Register("alice", aliceSubs, TableSubTasks, Filter{})
	hub.Register("bob", bob, TableTasks, Filter{})
	require.Equal(t, 3, hub.Count())

	delivered := hub.Publish(taskEvent(t, EventInsert, "alice", map[string]any{"id": "t-1", "user_id": "alice"}))
	require.Equal(t, 1, delivered)

	got := alice.received()
	require.Len(t, got, 1)
	require.Equal(t, EventInsert, got[0].Type)
	require.Empty(t, aliceSubs.received())
	require.Empty(t, bob.received())
}

func TestHub_FailedSendNotCounted(t *testing.T) {
	hub := NewHub(zap.NewNop())
	broken := &fakeClient{fail: true}
	hub.Register("alice", broken, TableTasks, Filter{})

	require.Zero(t, hub.Publish(taskEvent(t, EventUpdate, "alice", map[string]any{"id": "t-1"})))
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := &fakeClient{}
	hub.Register("alice", c, TableTasks, Filter{})
	hub.Unregister("alice", c)
	hub.Unregister("alice", c)

	require.Zero(t, hub.Count())
	require.Zero(t, hub.Publish(taskEvent(t, EventInsert, "alice", map[string]any{"id": "t-1"})))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("user_id=eq.abc")
	require.NoError(t, err)
	require.Equal(t, Filter{Column: "user_id", Value: "abc"}, f)
	require.Equal(t, "user_id=eq.abc", f.String())

	zero, err := ParseFilter("")
	require.NoError(t, err)
	require.True(t, zero.IsZero())

	for _, bad := range []string{"user_id", "=eq.x", "user_id=gt.3", "user_id=eq."} {
		_, err := ParseFilter(bad)
		require.ErrorIs(t, err, ErrInvalidFilter, bad)
	}
}

func TestFilter_Matches(t *testing.T) {
	insert := taskEvent(t, EventInsert, "alice", map[string]any{"id": "t-1", "user_id": "alice", "status": "Todo"})
	require.True(t, Filter{Column: "status", Value: "Todo"}.Matches(insert))
	require.False(t, Filter{Column: "status", Value: "Done"}.Matches(insert))
	require.False(t, Filter{Column: "missing", Value: "x"}.Matches(insert))

	deleted := taskEvent(t, EventDelete, "", map[string]any{"id": "t-1", "user_id": "alice"})
	require.True(t, Filter{Column: "user_id", Value: "alice"}.Matches(deleted))
	require.True(t, Filter{Column: "id", Value: "t-1"}.Matches(deleted))

	subTask, err := NewChangeEvent(TableSubTasks, EventInsert, "alice", map[string]any{"id": "s-1", "task_id": "t-1"}, nil)
	require.NoError(t, err)
	require.True(t, Filter{Column: "user_id", Value: "alice"}.Matches(subTask))
	require.False(t, Filter{Column: "user_id", Value: "bob"}.Matches(subTask))
}
