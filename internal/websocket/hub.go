package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/vakinola/Studyassist-MVP/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub pushes progress updates to websocket subscribers keyed by job id. It
// listens on the shared redis progress channel, so pushes stay consistent
// with what pollers read. Polling remains the primary transport; this is an
// optional faster lane for the presentation layer.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	cancel      context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
	}
}

// Start subscribes to the progress channel and fans updates out to the
// connections watching each job.
func (h *Hub) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.pump(ctx)
}

func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Hub) pump(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, store.ProgressChannel)
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("WebSocket hub: pubsub receive failed: %v", err)
			continue
		}

		var update struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil || update.JobID == "" {
			continue
		}

		h.broadcast(update.JobID, []byte(msg.Payload))
	}
}

// HandleProgress upgrades GET /ws/progress/{job_id}.
func (h *Hub) HandleProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		http.Error(w, "job id required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.register(jobID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(jobID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) register(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[jobID] = append(h.connections[jobID], conn)
}

func (h *Hub) unregister(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[jobID]
	for i, c := range conns {
		if c == conn {
			h.connections[jobID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[jobID]) == 0 {
		delete(h.connections, jobID)
	}
	conn.Close()
}

func (h *Hub) broadcast(jobID string, data []byte) {
	h.mu.RLock()
	conns := append([]*websocket.Conn(nil), h.connections[jobID]...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(jobID, conn)
		}
	}
}
