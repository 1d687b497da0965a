package transport

import (
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/yupaihuai/s3/internal/mempool"
	"github.com/yupaihuai/s3/internal/rpc"
)

const (
	// sendBuffer is the per-client outbound queue depth. A client that
	// falls further behind loses messages.
	sendBuffer = 16
	writeWait  = 5 * time.Second
)

// client is one WebSocket connection.
type client struct {
	id   string
	conn *websocket.Conn
	send chan string
	once sync.Once
	gone chan struct{}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.gone)
		c.conn.Close()
	})
}

// Hub accepts WebSocket connections and bridges them to the command
// sink. The sink returns false when the command queue is full; the hub
// answers the client with an error envelope in that case.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	sink     func(rpc.Request) bool
	pool     *mempool.Allocator
	upgrader websocket.Upgrader

	done chan struct{}
	wg   sync.WaitGroup
}

// NewHub creates a hub delivering parsed requests to sink. pool may be
// nil; when present, inbound frames are staged in pool blocks instead
// of fresh allocations.
func NewHub(sink func(rpc.Request) bool, pool *mempool.Allocator) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		sink:    sink,
		pool:    pool,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Routes registers the hub's endpoints on the router.
func (h *Hub) Routes(r *mux.Router) {
	r.HandleFunc("/ws", h.ServeWS)
}

// ServeWS upgrades the connection and serves it until the peer goes
// away or the hub stops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("transport: upgrade failed: %v", err)
		return
	}

	c := &client{
		id:   xid.New().String(),
		conn: conn,
		send: make(chan string, sendBuffer),
		gone: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Printf("transport: client %s connected from %s", c.id, conn.RemoteAddr())

	c.send <- rpc.Notification("system.welcome", map[string]string{"message": "connection established"})

	h.wg.Add(1)
	go h.writeLoop(c)

	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	c.close()
	log.Printf("transport: client %s disconnected", c.id)
}

// BroadcastText sends a pre-serialized frame to every connected client.
// Full per-client queues drop the frame for that client.
func (h *Hub) BroadcastText(text string) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- text:
		default:
			log.Printf("transport: client %s send queue full, frame dropped", c.id)
		}
	}
}

// SendTo sends a pre-serialized frame to one client. Unknown ids and
// full queues are logged no-ops.
func (h *Hub) SendTo(clientID, text string) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		log.Printf("transport: client %s not connected, frame dropped", clientID)
		return
	}
	select {
	case c.send <- text:
	default:
		log.Printf("transport: client %s send queue full, frame dropped", clientID)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes all connections and waits for the per-client goroutines
// to drain, bounded by a timeout.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	for _, c := range h.clients {
		c.close()
	}
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		log.Printf("transport: shutdown timed out waiting for client goroutines")
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	for {
		select {
		case text := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				c.close()
				return
			}
		case <-c.gone:
			return
		case <-h.done:
			return
		}
	}
}

// readLoop parses inbound frames into requests and hands them to the
// sink. It returns when the connection drops.
func (h *Hub) readLoop(c *client) {
	for {
		data, release, err := h.readFrame(c.conn)
		if err != nil {
			return
		}

		req, perr := rpc.ParseRequest(data)
		if release != nil {
			release()
		}
		if perr != nil {
			log.Printf("transport: client %s sent a malformed frame: %v", c.id, perr)
			h.SendTo(c.id, rpc.Error(nil, rpc.CodeParseError, "Parse error"))
			continue
		}

		req.ClientID = c.id
		id := c.id
		req.Respond = func(text string) { h.SendTo(id, text) }

		if !h.sink(req) {
			log.Printf("transport: command queue full, rejecting %s from client %s", req.Method, c.id)
			h.SendTo(c.id, rpc.Error(req.ID, rpc.CodeInternalError, "Server busy"))
		}
	}
}

// readFrame reads the next text frame, staged in a pool block when an
// allocator is available and the frame fits. Non-text frames are
// drained and skipped.
func (h *Hub) readFrame(conn *websocket.Conn) ([]byte, func(), error) {
	var r io.Reader
	for {
		mt, next, err := conn.NextReader()
		if err != nil {
			return nil, nil, err
		}
		if mt != websocket.TextMessage {
			if _, err := io.Copy(io.Discard, next); err != nil {
				return nil, nil, err
			}
			continue
		}
		r = next
		break
	}

	if h.pool != nil {
		if buf := h.pool.Acquire(4096); buf != nil {
			n, rerr := io.ReadFull(r, buf)
			if rerr == io.ErrUnexpectedEOF || rerr == io.EOF {
				pool := h.pool
				return buf[:n], func() { pool.Release(buf) }, nil
			}
			// Frame larger than the block; fall through to a plain read
			// of the remainder.
			rest, rerr := io.ReadAll(r)
			if rerr != nil {
				h.pool.Release(buf)
				return nil, nil, rerr
			}
			data := append(append([]byte{}, buf[:n]...), rest...)
			h.pool.Release(buf)
			return data, nil, nil
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
