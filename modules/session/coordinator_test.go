package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/roomchat/domain/chat"
	"github.com/example/roomchat/modules/presence"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

// delivery is one frame received by one connection.
type delivery struct {
	event   string
	payload any
}

// recordingEmitter fans emissions out into per-connection inboxes.
type recordingEmitter struct {
	mu        sync.Mutex
	connected []string
	inbox     map[string][]delivery
}

func newRecordingEmitter(connected ...string) *recordingEmitter {
	return &recordingEmitter{connected: connected, inbox: make(map[string][]delivery)}
}

func (e *recordingEmitter) Emit(connIDs []string, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range connIDs {
		e.inbox[id] = append(e.inbox[id], delivery{event: event, payload: payload})
	}
}

func (e *recordingEmitter) EmitAllExcept(except string, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.connected {
		if id != except {
			e.inbox[id] = append(e.inbox[id], delivery{event: event, payload: payload})
		}
	}
}

// take returns and clears everything delivered to connID.
func (e *recordingEmitter) take(connID string) []delivery {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.inbox[connID]
	delete(e.inbox, connID)
	return out
}

func (e *recordingEmitter) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, d := range e.inbox {
		n += len(d)
	}
	return n
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestCoordinator(connected ...string) (*Coordinator, *presence.Registry, *recordingEmitter) {
	registry := presence.NewRegistry()
	emitter := newRecordingEmitter(connected...)
	c := NewCoordinator(registry, emitter, &mockLogger{})
	c.now = func() time.Time { return fixedNow }
	return c, registry, emitter
}

func envelope(t *testing.T, d delivery) chat.Envelope {
	t.Helper()
	require.Equal(t, chat.EventMessage, d.event)
	env, ok := d.payload.(chat.Envelope)
	require.True(t, ok, "payload is %T", d.payload)
	return env
}

func roomData(t *testing.T, d delivery) chat.RoomData {
	t.Helper()
	require.Equal(t, chat.EventRoomData, d.event)
	data, ok := d.payload.(chat.RoomData)
	require.True(t, ok, "payload is %T", d.payload)
	return data
}

func TestCoordinator_Connect(t *testing.T) {
	c, _, emitter := newTestCoordinator("a", "b", "c")

	c.Connect("a")

	self := emitter.take("a")
	require.Len(t, self, 1)
	welcome := envelope(t, self[0])
	assert.Equal(t, chat.AdminLabel, welcome.SenderLabel)
	assert.Equal(t, fixedNow, welcome.CreatedAt)

	for _, other := range []string{"b", "c"} {
		got := emitter.take(other)
		require.Len(t, got, 1, "connection %s", other)
		notice := envelope(t, got[0])
		assert.True(t, notice.IsSystem())
		assert.Equal(t, "A new user has joined", notice.Text)
	}
}

func TestCoordinator_Join(t *testing.T) {
	c, registry, emitter := newTestCoordinator()

	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))

	got := emitter.take("a")
	require.Len(t, got, 2, "welcome and snapshot; no self notice")
	welcome := envelope(t, got[0])
	assert.Equal(t, chat.AdminLabel, welcome.SenderLabel)
	assert.Contains(t, welcome.Text, "Alice")
	assert.Equal(t, chat.RoomData{Room: "general", Users: []string{"Alice"}}, roomData(t, got[1]))
	assert.Equal(t, []string{"Alice"}, registry.ListRoom("general"))
}

func TestCoordinator_Join_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     JoinRequest
		wantErr error
	}{
		{name: "blank name", req: JoinRequest{DisplayName: " ", RoomName: "general"}, wantErr: chat.ErrInvalidInput},
		{name: "blank room", req: JoinRequest{DisplayName: "Carol", RoomName: ""}, wantErr: chat.ErrInvalidInput},
		{name: "name taken", req: JoinRequest{DisplayName: "BOB", RoomName: "general"}, wantErr: chat.ErrNameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, registry, emitter := newTestCoordinator()
			require.NoError(t, c.Join("b", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
			emitter.take("b")

			err := c.Join("c", tt.req)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, emitter.total(), "failed join must not broadcast")
			assert.Equal(t, []string{"Bob"}, registry.ListRoom("general"))
			_, ok := registry.Get("c")
			assert.False(t, ok)
		})
	}
}

func TestCoordinator_Join_Twice(t *testing.T) {
	c, registry, emitter := newTestCoordinator()
	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	emitter.take("a")

	err := c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "random"})

	require.ErrorIs(t, err, chat.ErrAlreadyJoined)
	assert.Zero(t, emitter.total())
	assert.Empty(t, registry.ListRoom("random"))
}

func TestCoordinator_SendMessage(t *testing.T) {
	c, _, emitter := newTestCoordinator()
	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	require.NoError(t, c.Join("b", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
	require.NoError(t, c.Join("x", JoinRequest{DisplayName: "Xavier", RoomName: "random"}))
	for _, id := range []string{"a", "b", "x"} {
		emitter.take(id)
	}

	require.NoError(t, c.SendMessage("b", SendMessageRequest{Text: "hi"}))

	for _, id := range []string{"a", "b"} {
		got := emitter.take(id)
		require.Len(t, got, 1, "connection %s", id)
		env := envelope(t, got[0])
		assert.Equal(t, "Bob", env.SenderLabel)
		assert.Equal(t, "hi", env.Text)
		assert.Equal(t, fixedNow, env.CreatedAt)
	}
	assert.Empty(t, emitter.take("x"), "other rooms must not receive the message")
}

func TestCoordinator_SendMessage_NotJoined(t *testing.T) {
	c, _, emitter := newTestCoordinator("a", "b")
	require.NoError(t, c.Join("b", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
	emitter.take("b")

	err := c.SendMessage("a", SendMessageRequest{Text: "hello?"})

	assert.NoError(t, err)
	assert.Zero(t, emitter.total())
}

func TestCoordinator_SendMessage_InvalidText(t *testing.T) {
	c, _, emitter := newTestCoordinator()
	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	emitter.take("a")

	err := c.SendMessage("a", SendMessageRequest{Text: strings.Repeat("x", chat.MaxMessageLength+1)})

	require.ErrorIs(t, err, chat.ErrInvalidInput)
	assert.Zero(t, emitter.total())
}

func TestCoordinator_SendMessage_EmptyTextIsDelivered(t *testing.T) {
	c, _, emitter := newTestCoordinator()
	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	emitter.take("a")

	require.NoError(t, c.SendMessage("a", SendMessageRequest{Text: ""}))

	got := emitter.take("a")
	require.Len(t, got, 1)
	env := envelope(t, got[0])
	assert.Equal(t, "Alice", env.SenderLabel)
	assert.Equal(t, "", env.Text)
}

func TestCoordinator_Disconnect(t *testing.T) {
	c, registry, emitter := newTestCoordinator()
	require.NoError(t, c.Join("a", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	require.NoError(t, c.Join("b", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
	require.NoError(t, c.Join("x", JoinRequest{DisplayName: "Xavier", RoomName: "random"}))
	for _, id := range []string{"a", "b", "x"} {
		emitter.take(id)
	}

	c.Disconnect("a")

	got := emitter.take("b")
	require.Len(t, got, 2)
	notice := envelope(t, got[0])
	assert.Equal(t, chat.AdminLabel, notice.SenderLabel)
	assert.Equal(t, "Alice has left", notice.Text)
	assert.Equal(t, chat.RoomData{Room: "general", Users: []string{"Bob"}}, roomData(t, got[1]))

	assert.Empty(t, emitter.take("a"))
	assert.Empty(t, emitter.take("x"))
	assert.Equal(t, []string{"Bob"}, registry.ListRoom("general"))
	_, ok := registry.Get("a")
	assert.False(t, ok)
}

func TestCoordinator_Disconnect_Idempotent(t *testing.T) {
	c, _, emitter := newTestCoordinator("a", "b")
	require.NoError(t, c.Join("b", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
	emitter.take("b")

	c.Disconnect("a") // never joined
	c.Disconnect("b")
	c.Disconnect("b")

	assert.Zero(t, emitter.total())
}

func TestCoordinator_AliceBobScenario(t *testing.T) {
	c, registry, emitter := newTestCoordinator()

	require.NoError(t, c.Join("A", JoinRequest{DisplayName: "Alice", RoomName: "general"}))
	assert.Equal(t, []string{"Alice"}, registry.ListRoom("general"))
	emitter.take("A")

	require.NoError(t, c.Join("B", JoinRequest{DisplayName: "Bob", RoomName: "general"}))
	assert.Equal(t, []string{"Alice", "Bob"}, registry.ListRoom("general"))

	alice := emitter.take("A")
	require.Len(t, alice, 2)
	assert.Equal(t, "Bob has joined", envelope(t, alice[0]).Text)
	assert.Equal(t, chat.RoomData{Room: "general", Users: []string{"Alice", "Bob"}}, roomData(t, alice[1]))
	emitter.take("B")

	require.NoError(t, c.SendMessage("B", SendMessageRequest{Text: "hi"}))
	for _, id := range []string{"A", "B"} {
		got := emitter.take(id)
		require.Len(t, got, 1)
		env := envelope(t, got[0])
		assert.Equal(t, "Bob", env.SenderLabel)
		assert.Equal(t, "hi", env.Text)
	}

	c.Disconnect("A")
	assert.Equal(t, []string{"Bob"}, registry.ListRoom("general"))
	bob := emitter.take("B")
	require.Len(t, bob, 2)
	assert.Equal(t, "Alice has left", envelope(t, bob[0]).Text)
	assert.Equal(t, chat.RoomData{Room: "general", Users: []string{"Bob"}}, roomData(t, bob[1]))

	// C tries to take Bob's name.
	err := c.Join("C", JoinRequest{DisplayName: "Bob", RoomName: "general"})
	require.ErrorIs(t, err, chat.ErrNameTaken)
	assert.Equal(t, []string{"Bob"}, registry.ListRoom("general"))
	assert.Zero(t, emitter.total())
}

func TestCoordinator_SnapshotsNeverStale(t *testing.T) {
	c, _, emitter := newTestCoordinator()
	require.NoError(t, c.Join("observer", JoinRequest{DisplayName: "Observer", RoomName: "general"}))
	emitter.take("observer")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = c.Join(id, JoinRequest{DisplayName: "user-" + id, RoomName: "general"})
			c.Disconnect(id)
		}(i)
	}
	wg.Wait()

	// Replay the observer's inbox: every snapshot must agree with the
	// membership implied by the notices received before it.
	members := map[string]bool{"Observer": true}
	for _, d := range emitter.take("observer") {
		switch d.event {
		case chat.EventMessage:
			env := envelope(t, d)
			switch {
			case len(env.Text) > len(" has joined") && env.Text[len(env.Text)-len(" has joined"):] == " has joined":
				members[env.Text[:len(env.Text)-len(" has joined")]] = true
			case len(env.Text) > len(" has left") && env.Text[len(env.Text)-len(" has left"):] == " has left":
				delete(members, env.Text[:len(env.Text)-len(" has left")])
			}
		case chat.EventRoomData:
			data := roomData(t, d)
			assert.Len(t, data.Users, len(members))
			for _, u := range data.Users {
				assert.True(t, members[u], "snapshot lists %s before its join notice", u)
			}
		}
	}
	assert.Equal(t, map[string]bool{"Observer": true}, members)
}
