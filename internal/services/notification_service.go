package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/BrunoMMendonca/forecast-alchemy-studio-sub001/internal/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client represents a websocket client connection watching one dataset
type Client struct {
	conn      *websocket.Conn
	datasetID uint
	send      chan []byte
}

// NotificationType defines types of notification messages
type NotificationType string

const (
	// NotificationTypeJobProgress for running job progress updates
	NotificationTypeJobProgress NotificationType = "job_progress"
	// NotificationTypeJobCompleted for finished jobs
	NotificationTypeJobCompleted NotificationType = "job_completed"
	// NotificationTypeJobFailed for failed jobs
	NotificationTypeJobFailed NotificationType = "job_failed"
	// NotificationTypeBatchCreated for new optimization batches
	NotificationTypeBatchCreated NotificationType = "batch_created"
)

// NotificationMessage represents a message sent to clients
type NotificationMessage struct {
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	DatasetID uint             `json:"dataset_id"`
	Payload   interface{}      `json:"payload"`
}

// NotificationService manages websocket connections and pushes job
// lifecycle events to watching clients
type NotificationService struct {
	logger       *utils.Logger
	clients      map[*Client]bool
	register     chan *Client
	unregister   chan *Client
	broadcast    chan *NotificationMessage
	datasetCasts map[uint]chan *NotificationMessage
	mutex        sync.RWMutex
}

// NewNotificationService creates a new notification service
func NewNotificationService(logger *utils.Logger) *NotificationService {
	service := &NotificationService{
		logger:       logger.Named("notification_service"),
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan *NotificationMessage),
		datasetCasts: make(map[uint]chan *NotificationMessage),
	}

	go service.run()
	return service
}

// RegisterClient adds a new websocket client watching the given dataset.
// Dataset 0 receives every event.
func (s *NotificationService) RegisterClient(conn *websocket.Conn, datasetID uint) *Client {
	client := &Client{
		conn:      conn,
		datasetID: datasetID,
		send:      make(chan []byte, 256),
	}

	s.register <- client

	// Start goroutines for reading and writing
	go s.readPump(client)
	go s.writePump(client)

	return client
}

// Notify sends a notification to all clients
func (s *NotificationService) Notify(notificationType NotificationType, datasetID uint, payload interface{}) {
	message := &NotificationMessage{
		Type:      notificationType,
		Timestamp: time.Now(),
		DatasetID: datasetID,
		Payload:   payload,
	}

	s.broadcast <- message
}

// NotifyDataset sends a notification to clients watching a specific dataset
func (s *NotificationService) NotifyDataset(datasetID uint, notificationType NotificationType, payload interface{}) {
	message := &NotificationMessage{
		Type:      notificationType,
		Timestamp: time.Now(),
		DatasetID: datasetID,
		Payload:   payload,
	}

	s.mutex.RLock()
	datasetChan, exists := s.datasetCasts[datasetID]
	s.mutex.RUnlock()

	if exists {
		datasetChan <- message
	} else {
		s.mutex.Lock()
		s.datasetCasts[datasetID] = make(chan *NotificationMessage, 256)
		s.mutex.Unlock()

		go s.handleDatasetMessages(datasetID)
		s.datasetCasts[datasetID] <- message
	}
}

// run processes messages in the main loop
func (s *NotificationService) run() {
	for {
		select {
		case client := <-s.register:
			s.mutex.Lock()
			s.clients[client] = true
			s.mutex.Unlock()
			s.logger.Debug("Client registered",
				zap.Uint("dataset_id", client.datasetID))

		case client := <-s.unregister:
			s.mutex.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.mutex.Unlock()
			s.logger.Debug("Client unregistered",
				zap.Uint("dataset_id", client.datasetID))

		case message := <-s.broadcast:
			s.mutex.RLock()
			for client := range s.clients {
				s.sendToClient(client, message)
			}
			s.mutex.RUnlock()
		}
	}
}

// handleDatasetMessages fans messages out to the clients watching one dataset
func (s *NotificationService) handleDatasetMessages(datasetID uint) {
	s.mutex.RLock()
	datasetChan := s.datasetCasts[datasetID]
	s.mutex.RUnlock()

	for {
		message, ok := <-datasetChan
		if !ok {
			return // Channel closed
		}

		s.mutex.RLock()
		for client := range s.clients {
			if client.datasetID == datasetID || client.datasetID == 0 {
				s.sendToClient(client, message)
			}
		}
		s.mutex.RUnlock()
	}
}

// sendToClient sends a message to a specific client
func (s *NotificationService) sendToClient(client *Client, message *NotificationMessage) {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("Failed to marshal notification message",
			zap.Error(err),
			zap.String("type", string(message.Type)))
		return
	}

	select {
	case client.send <- jsonMessage:
		// Message sent
	default:
		// Client's send buffer is full
		s.mutex.Lock()
		delete(s.clients, client)
		close(client.send)
		s.mutex.Unlock()
		s.logger.Warn("Client buffer full, connection closed",
			zap.Uint("dataset_id", client.datasetID))
	}
}

// readPump reads messages from the client
func (s *NotificationService) readPump(client *Client) {
	defer func() {
		s.unregister <- client
		client.conn.Close()
	}()

	// Set limits on websocket connection
	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Clients only listen; inbound payloads are discarded
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				s.logger.Warn("Unexpected websocket close",
					zap.Error(err),
					zap.Uint("dataset_id", client.datasetID))
			}
			break
		}
	}
}

// writePump writes messages to the client
func (s *NotificationService) writePump(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
