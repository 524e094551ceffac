// Package stream 通过 websocket 向订阅方推送已提交的协议事件
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/blues/liftoff/internal/event"
	"github.com/blues/liftoff/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// client 单个订阅连接, raiseId 为 nil 时接收全部募资的事件
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	raiseId *uint64
}

// Hub 事件推送中心, 实现 event.Processor
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	bufferSize int
}

// NewHub 创建推送中心
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		bufferSize: bufferSize,
	}
}

// GetName 处理器名称
func (h *Hub) GetName() string {
	return "stream"
}

// Clients 当前连接数
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Process 广播事件; 发送队列已满的连接会被断开
func (h *Hub) Process(_ context.Context, e *event.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.raiseId != nil && *c.raiseId != e.RaiseId {
			continue
		}
		select {
		case c.send <- body:
		default:
			logger.Warn("Stream client %s too slow, dropping connection", c.conn.RemoteAddr())
			h.removeLocked(c)
		}
	}
	return nil
}

// Serve 升级为 websocket 连接, 可用 raise_id 查询参数过滤
func (h *Hub) Serve(c *gin.Context) {
	var raiseId *uint64
	if s := c.Query("raise_id"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的募资ID"})
			return
		}
		raiseId = &id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Failed to upgrade stream connection: %v", err)
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, h.bufferSize), raiseId: raiseId}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	logger.Info("Stream client connected: %s", conn.RemoteAddr())

	go h.writePump(cl)
	go h.readPump(cl)
}

// Close 断开全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// readPump 只处理 pong 与关闭
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		logger.Info("Stream client disconnected: %s", c.conn.RemoteAddr())
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
