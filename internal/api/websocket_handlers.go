// internal/api/websocket_handlers.go
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler 处理任务进度的 WebSocket 订阅
type WebSocketHandler struct {
	ProgressService *services.ProgressService
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(progressService *services.ProgressService) *WebSocketHandler {
	return &WebSocketHandler{
		ProgressService: progressService,
	}
}

// ProgressWebSocket 处理进度订阅连接
//
// 客户端通过 /ws?task_id=xxx 连接后会持续收到该任务的进度推送，
// 任务完成或失败后连接由服务端关闭。
func (wh *WebSocketHandler) ProgressWebSocket(c *gin.Context) {
	taskID := c.Query("task_id")
	if taskID == "" {
		log.Printf("❌ WebSocket 连接失败：任务ID缺失")
		http.Error(c.Writer, "任务ID缺失", http.StatusBadRequest)
		return
	}

	tracker, exists := wh.ProgressService.GetTracker(taskID)
	if !exists {
		http.Error(c.Writer, "任务不存在", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ 进度 WebSocket 升级失败: %v", err)
		return
	}
	defer conn.Close()

	// 创建客户端
	client := &WebSocketClient{
		conn:      &WebSocketConnWrapper{conn},
		taskID:    taskID,
		send:      make(chan []byte, 256),
		closed:    0,
		lastPing:  time.Now(),
		createdAt: time.Now(),
	}

	// 注册客户端
	select {
	case wsManager.register <- client:
		// Success
	default:
		log.Printf("❌ 无法注册 WebSocket 客户端，注册通道已满")
		return
	}

	defer func() {
		// 注销时带超时，避免阻塞
		done := make(chan bool, 1)
		go func() {
			wsManager.unregister <- client
			done <- true
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Printf("⚠️ WebSocket 客户端注销超时")
		}
	}()

	// 启动读写协程
	go wh.handleWebSocketWrites(client)
	go wh.handleWebSocketReads(client)

	// 发送连接确认消息和当前进度快照
	wh.sendWelcomeMessage(client, tracker)

	// 转发进度更新直到任务结束或连接断开
	wh.forwardProgress(c, client, tracker)

	log.Printf("📱 任务 %s 的 WebSocket 连接已关闭", taskID)
}

// forwardProgress 订阅进度跟踪器并把更新推给客户端
func (wh *WebSocketHandler) forwardProgress(c *gin.Context, client *WebSocketClient, tracker *services.ProgressTracker) {
	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}

			client.SendMessage(map[string]interface{}{
				"type":     "progress",
				"task_id":  client.taskID,
				"progress": update.Progress,
				"message":  update.Message,
				"status":   update.Status,
			})

			if update.Status == "completed" || update.Status == "failed" {
				return
			}
		}
	}
}

// handleWebSocketReads 处理 WebSocket 读取
func (wh *WebSocketHandler) handleWebSocketReads(client *WebSocketClient) {
	defer func() {
		if !client.IsClosed() {
			select {
			case wsManager.unregister <- client:
			case <-time.After(1 * time.Second):
				log.Printf("⚠️ 读取协程关闭时注销超时")
			}
		}
	}()

	// 设置读取超时和ping处理
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if client.IsClosed() {
			break
		}

		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		_, messageBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket 读取错误: %v", err)
			}
			break
		}

		var message map[string]interface{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("⚠️ JSON解析失败: %v", err)
			continue
		}

		client.UpdatePing()
		wh.handleMessage(client, message)
	}
}

// handleWebSocketWrites 处理 WebSocket 写入
func (wh *WebSocketHandler) handleWebSocketWrites(client *WebSocketClient) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
			func() {
				defer func() {
					if recover() != nil {
						// 通道已被关闭
					}
				}()
				close(client.send)
			}()
		}
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			if client.IsClosed() {
				return
			}

			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("❌ WebSocket 写入失败: %v", err)
				return
			}

		case <-ticker.C:
			if client.IsClosed() {
				return
			}

			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("❌ WebSocket ping 失败: %v", err)
				return
			}
			client.UpdatePing()
		}
	}
}

// handleMessage 处理收到的 WebSocket 消息
func (wh *WebSocketHandler) handleMessage(client *WebSocketClient, message map[string]interface{}) {
	messageType, _ := message["type"].(string)

	switch messageType {
	case "ping":
		client.SendMessage(map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	case "status":
		if tracker, exists := wh.ProgressService.GetTracker(client.taskID); exists {
			snapshot := tracker.Snapshot()
			client.SendMessage(map[string]interface{}{
				"type":     "progress",
				"task_id":  client.taskID,
				"progress": snapshot.Progress,
				"message":  snapshot.Message,
				"status":   snapshot.Status,
			})
		}
	default:
		client.SendError("未知消息类型: " + messageType)
	}
}

// sendWelcomeMessage 发送连接确认消息和当前进度快照
func (wh *WebSocketHandler) sendWelcomeMessage(client *WebSocketClient, tracker *services.ProgressTracker) {
	snapshot := tracker.Snapshot()
	client.SendMessage(map[string]interface{}{
		"type":      "connected",
		"task_id":   client.taskID,
		"progress":  snapshot.Progress,
		"status":    snapshot.Status,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
