package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/connect4-engine/internal/domain"
)

const writeWait = 10 * time.Second

// ConnectionManager handles active WebSocket connections thread-safely
type ConnectionManager struct {
	connections map[string]*websocket.Conn

	// conn.WriteJSON is not safe for concurrent use; one writer per socket.
	writeMu map[string]*sync.Mutex

	mu sync.RWMutex // Protects the maps themselves
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		writeMu:     make(map[string]*sync.Mutex),
	}
}

// AddConnection registers a new connection and initializes its write lock.
// A player has at most one socket; an older one is closed.
func (cm *ConnectionManager) AddConnection(player string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if oldConn, exists := cm.connections[player]; exists && oldConn != conn {
		oldConn.Close()
	}

	cm.connections[player] = conn
	cm.writeMu[player] = &sync.Mutex{}
}

// RemoveConnectionIfMatching avoids closing a NEW connection when cleaning up
// an OLD one.
func (cm *ConnectionManager) RemoveConnectionIfMatching(player string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if currentConn, exists := cm.connections[player]; exists && currentConn == conn {
		currentConn.Close()
		delete(cm.connections, player)
		delete(cm.writeMu, player)
	}
}

func (cm *ConnectionManager) IsConnected(player string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	_, exists := cm.connections[player]
	return exists
}

// SendMessage sends a JSON message to a specific player. Players without a
// socket are skipped.
func (cm *ConnectionManager) SendMessage(player string, message domain.ServerMessage) error {
	cm.mu.RLock()
	conn, exists := cm.connections[player]
	mu, muExists := cm.writeMu[player]
	cm.mu.RUnlock()

	if !exists || !muExists {
		return nil // Player disconnected, ignore
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(message)
}

// CloseAll closes every socket, used on shutdown.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for player, conn := range cm.connections {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(cm.connections, player)
		delete(cm.writeMu, player)
	}
}
