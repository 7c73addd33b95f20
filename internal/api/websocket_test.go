// internal/api/websocket_test.go
package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubConn 仅满足接口，测试直接从 send 通道取消息
type stubConn struct{}

func (*stubConn) WriteMessage(int, []byte) error    { return nil }
func (*stubConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (*stubConn) Close() error                      { return nil }
func (*stubConn) SetReadDeadline(time.Time) error   { return nil }
func (*stubConn) SetWriteDeadline(time.Time) error  { return nil }
func (*stubConn) SetPongHandler(func(string) error) {}

func newTestManager() *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[string]map[WebSocketConnection]*WebSocketClient),
		register:    make(chan *WebSocketClient, 4),
		unregister:  make(chan *WebSocketClient, 4),
		cleanup:     make(chan bool, 1),
		pingTimeout: time.Minute,
	}
}

func newTestClient(taskID string) *WebSocketClient {
	return &WebSocketClient{
		conn:      &stubConn{},
		taskID:    taskID,
		send:      make(chan []byte, 8),
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}
}

func TestBroadcastToTaskDeliversToSubscribers(t *testing.T) {
	manager := newTestManager()

	subscriber := newTestClient("task_1")
	bystander := newTestClient("task_2")
	manager.registerClient(subscriber)
	manager.registerClient(bystander)

	manager.BroadcastToTask("task_1", map[string]interface{}{
		"type":    "cancelled",
		"task_id": "task_1",
	})

	require.Len(t, subscriber.send, 1)
	assert.Empty(t, bystander.send)

	var message map[string]interface{}
	require.NoError(t, json.Unmarshal(<-subscriber.send, &message))
	assert.Equal(t, "cancelled", message["type"])
	assert.Equal(t, "task_1", message["task_id"])
}

func TestBroadcastToTaskSkipsClosedClients(t *testing.T) {
	manager := newTestManager()

	client := newTestClient("task_1")
	manager.registerClient(client)
	client.Close()

	manager.BroadcastToTask("task_1", map[string]interface{}{"type": "cancelled"})
	assert.Empty(t, client.send)
}

func TestBroadcastToTaskUnknownTaskIsNoop(t *testing.T) {
	manager := newTestManager()

	// 没有订阅者时不得崩溃
	manager.BroadcastToTask("task_missing", map[string]interface{}{"type": "cancelled"})
	assert.Empty(t, manager.connections)
}
