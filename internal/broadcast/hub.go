package broadcast

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradesync/internal/logger"
)

// 中文说明：
// WebSocket 广播枢纽：把处理完成的订单记录实时推给已连接的前端。
// 发送失败的连接直接摘除；Broadcast 非阻塞，队列满时丢弃并告警。

type Hub struct {
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
	messages chan any
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*websocket.Conn),
		messages: make(chan any, 64),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run 广播主循环，ctx 取消时关闭所有连接退出
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case msg := <-h.messages:
			h.fanout(msg)
		}
	}
}

// Broadcast 入队一条消息，队列满时丢弃
func (h *Hub) Broadcast(msg any) {
	select {
	case h.messages <- msg:
	default:
		logger.Warnf("broadcast: queue full, dropping message")
	}
}

// HandleWS 把 HTTP 连接升级成 WebSocket 并注册
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("broadcast: upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	logger.Debugf("broadcast: client connected id=%s total=%d", id, h.ClientCount())

	// 读循环只为感知断开
	go func() {
		defer h.drop(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) fanout(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debugf("broadcast: dropping client id=%s: %v", id, err)
			conn.Close()
			delete(h.clients, id)
		}
	}
}

func (h *Hub) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}
