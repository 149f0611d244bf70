package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hirewise/server/domain"
	"github.com/hirewise/server/domain/entities"
	"github.com/hirewise/server/internal/metrics"
)

type recordedLine struct {
	sessionID string
	line      entities.TranscriptItem
}

type fakeRecorder struct {
	mu    sync.Mutex
	lines []recordedLine
}

func (r *fakeRecorder) RecordLine(ctx context.Context, sessionID string, line entities.TranscriptItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, recordedLine{sessionID: sessionID, line: line})
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

func setupTestServer(t *testing.T) (*Hub, *fakeRecorder, string) {
	t.Helper()

	recorder := &fakeRecorder{}
	hub := NewHub(recorder, metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws/:session", func(c echo.Context) error {
		role := RoleViewer
		if c.QueryParam("role") == "publisher" {
			role = RolePublisher
		}
		return Serve(hub, c, c.Param("session"), role)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return hub, recorder, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount(sessionID) != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients in %s, got %d", n, sessionID, hub.ClientCount(sessionID))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal %s: %v", data, err)
	}
	return msg
}

func publishLine(t *testing.T, conn *websocket.Conn, speaker, text string) {
	t.Helper()
	msg := domain.TranscriptLineMessage{
		Type: domain.MessageTypeTranscriptLine,
		Line: entities.TranscriptItem{Speaker: entities.Speaker(speaker), Text: text},
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestHub_RelaysLinesToViewers(t *testing.T) {
	hub, recorder, base := setupTestServer(t)

	viewer := dial(t, base+"/ws/s1")
	other := dial(t, base+"/ws/s2")
	publisher := dial(t, base+"/ws/s1?role=publisher")
	waitForClients(t, hub, "s1", 2)
	waitForClients(t, hub, "s2", 1)

	publishLine(t, publisher, "Candidate", "I led the migration")

	msg := readJSON(t, viewer)
	if msg["type"] != domain.MessageTypeTranscriptLine {
		t.Fatalf("expected transcript line, got %v", msg["type"])
	}
	if msg["session_id"] != "s1" {
		t.Errorf("expected session s1, got %v", msg["session_id"])
	}
	line := msg["line"].(map[string]interface{})
	if line["text"] != "I led the migration" {
		t.Errorf("unexpected text %v", line["text"])
	}

	if recorder.count() != 1 {
		t.Errorf("expected 1 recorded line, got %d", recorder.count())
	}

	// other rooms see nothing
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("viewer of another session received a message")
	}
}

func TestHub_LateViewerGetsBacklog(t *testing.T) {
	hub, _, base := setupTestServer(t)

	publisher := dial(t, base+"/ws/s1?role=publisher")
	waitForClients(t, hub, "s1", 1)

	publishLine(t, publisher, "Interviewer", "First question")
	publishLine(t, publisher, "Candidate", "First answer")

	// wait until both lines are in the backlog
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.rooms["s1"].backlog)
		hub.mu.RUnlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 backlog entries, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	viewer := dial(t, base+"/ws/s1")
	first := readJSON(t, viewer)
	second := readJSON(t, viewer)

	if first["line"].(map[string]interface{})["text"] != "First question" {
		t.Errorf("unexpected first line %v", first)
	}
	if second["line"].(map[string]interface{})["text"] != "First answer" {
		t.Errorf("unexpected second line %v", second)
	}
}

func TestHub_RejectsInvalidMessages(t *testing.T) {
	hub, recorder, base := setupTestServer(t)

	publisher := dial(t, base+"/ws/s1?role=publisher")
	viewer := dial(t, base+"/ws/s1")
	waitForClients(t, hub, "s1", 2)

	publishLine(t, publisher, "Candidate", "   ")
	msg := readJSON(t, publisher)
	if msg["type"] != domain.MessageTypeError || msg["error_code"] != "invalid_message" {
		t.Errorf("expected invalid_message error, got %v", msg)
	}

	publishLine(t, viewer, "Candidate", "sneaky")
	msg = readJSON(t, viewer)
	if msg["error_code"] != "forbidden" {
		t.Errorf("expected forbidden error, got %v", msg)
	}

	if recorder.count() != 0 {
		t.Errorf("expected nothing recorded, got %d", recorder.count())
	}
}

func TestHub_Ping(t *testing.T) {
	hub, _, base := setupTestServer(t)

	viewer := dial(t, base+"/ws/s1")
	waitForClients(t, hub, "s1", 1)

	if err := viewer.WriteJSON(PingMessage{Type: MessageTypePing, Data: "hi"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readJSON(t, viewer)
	if msg["type"] != MessageTypePong || msg["data"] != "hi" {
		t.Errorf("unexpected pong %v", msg)
	}
}

func TestHub_BroadcastSessionEnded(t *testing.T) {
	hub, _, base := setupTestServer(t)

	viewer := dial(t, base+"/ws/s1")
	waitForClients(t, hub, "s1", 1)

	err := hub.Broadcast("s1", domain.SessionEndedMessage{
		Type:        domain.MessageTypeSessionEnded,
		SessionID:   "s1",
		InterviewID: "abc",
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	msg := readJSON(t, viewer)
	if msg["type"] != domain.MessageTypeSessionEnded || msg["interview_id"] != "abc" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestHub_UnregisterRemovesRoom(t *testing.T) {
	hub, _, base := setupTestServer(t)

	viewer := dial(t, base+"/ws/s1")
	waitForClients(t, hub, "s1", 1)

	viewer.Close()
	waitForClients(t, hub, "s1", 0)

	hub.mu.RLock()
	_, exists := hub.rooms["s1"]
	hub.mu.RUnlock()
	if exists {
		t.Error("expected empty room to be removed")
	}
}

func TestHub_StoppedHub(t *testing.T) {
	hub := NewHub(nil, metrics.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	if err := hub.Broadcast("s1", map[string]string{"type": "x"}); err != ErrHubClosed {
		t.Errorf("expected ErrHubClosed, got %v", err)
	}
}

func TestRole_String(t *testing.T) {
	if RoleViewer.String() != "viewer" || RolePublisher.String() != "publisher" {
		t.Error("unexpected role names")
	}
}
