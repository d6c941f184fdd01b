package services

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS layer in front of the upgrade
		return true
	},
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024
)

// Connection is one WebSocket client subscribed to claim status updates
type Connection struct {
	ID          string          `json:"id"`
	UserAddress string          `json:"user_address"`
	Conn        *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	LastPing    time.Time       `json:"last_ping"`
}

// PushMessage is the envelope for every pushed update
type PushMessage struct {
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp"`
	MessageID   string      `json:"message_id"`
	UserAddress string      `json:"user_address"`
	Data        interface{} `json:"data"`
}

// PushService fans claim/transaction status updates out to the WebSocket
// connections registered for a wallet address
type PushService struct {
	connections map[string]*Connection   // key: connection ID
	userConns   map[string][]*Connection // key: lowercase wallet address
	hub         chan PushMessage
	register    chan *Connection
	unregister  chan *Connection
	mutex       sync.RWMutex
}

// NewPushService creates the push service and starts its hub loop
func NewPushService() *PushService {
	service := &PushService{
		connections: make(map[string]*Connection),
		userConns:   make(map[string][]*Connection),
		hub:         make(chan PushMessage, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}

	go service.run()
	return service
}

func (s *PushService) run() {
	for {
		select {
		case conn := <-s.register:
			s.handleRegister(conn)

		case conn := <-s.unregister:
			s.handleUnregister(conn)

		case message := <-s.hub:
			s.handleBroadcast(message)
		}
	}
}

// HandleConnection upgrades the HTTP request and serves the connection
// until the client disconnects
func (s *PushService) HandleConnection(w http.ResponseWriter, r *http.Request, userAddress string) {
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	conn := &Connection{
		ID:          uuid.New().String(),
		UserAddress: strings.ToLower(userAddress),
		Conn:        wsConn,
		Send:        make(chan []byte, 64),
		LastPing:    time.Now(),
	}

	s.register <- conn

	go s.writePump(conn)
	s.readPump(conn)
}

func (s *PushService) handleRegister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.connections[conn.ID] = conn
	s.userConns[conn.UserAddress] = append(s.userConns[conn.UserAddress], conn)

	log.Printf("📱 WebSocket connection registered: user=%s, connID=%s", conn.UserAddress, conn.ID)

	confirm := PushMessage{
		Type:        "connection_established",
		Timestamp:   time.Now().Format(time.RFC3339),
		MessageID:   uuid.New().String(),
		UserAddress: conn.UserAddress,
		Data: map[string]interface{}{
			"connection_id": conn.ID,
			"message":       "Real-time claim status connection established",
		},
	}
	if data, err := json.Marshal(confirm); err == nil {
		select {
		case conn.Send <- data:
		default:
		}
	}
}

func (s *PushService) handleUnregister(conn *Connection) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.connections[conn.ID]; !exists {
		return
	}
	delete(s.connections, conn.ID)

	userConns := s.userConns[conn.UserAddress]
	for i, c := range userConns {
		if c.ID == conn.ID {
			s.userConns[conn.UserAddress] = append(userConns[:i], userConns[i+1:]...)
			break
		}
	}
	if len(s.userConns[conn.UserAddress]) == 0 {
		delete(s.userConns, conn.UserAddress)
	}

	close(conn.Send)
	conn.Conn.Close()

	log.Printf("📱 WebSocket connection unregistered: user=%s, connID=%s", conn.UserAddress, conn.ID)
}

func (s *PushService) handleBroadcast(message PushMessage) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	userConns, exists := s.userConns[message.UserAddress]
	if !exists {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("❌ Failed to marshal push message: %v", err)
		return
	}

	for _, conn := range userConns {
		select {
		case conn.Send <- data:
		default:
			// slow consumer, drop the update rather than block the hub
			log.Printf("⚠️  Dropping push message for slow connection %s", conn.ID)
		}
	}
}

// PushClaimStatus pushes a claim status payload to every connection of the
// given wallet address
func (s *PushService) PushClaimStatus(userAddress string, payload map[string]interface{}) {
	message := PushMessage{
		Type:        "claim_status",
		Timestamp:   time.Now().Format(time.RFC3339),
		MessageID:   uuid.New().String(),
		UserAddress: strings.ToLower(userAddress),
		Data:        payload,
	}

	select {
	case s.hub <- message:
	default:
		log.Printf("⚠️  Push hub full, dropping claim status for %s", userAddress)
	}
}

// ConnectionCount reports the number of live connections
func (s *PushService) ConnectionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.connections)
}

func (s *PushService) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *PushService) readPump(conn *Connection) {
	defer func() {
		s.unregister <- conn
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.LastPing = time.Now()
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
