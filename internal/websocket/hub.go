package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/internal/audio"
	"github.com/NotSquiz/atlas-bridge/internal/interaction"
	"github.com/NotSquiz/atlas-bridge/internal/stream"
	"github.com/NotSquiz/atlas-bridge/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients. Each client runs its own
// push-to-talk round through the shared conversation service.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	conversation *usecase.ConversationService
	logger       *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(conversation *usecase.ConversationService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		conversation: conversation,
		logger:       logger,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.deviceID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("deviceID", client.deviceID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.deviceID]; ok {
				delete(h.clients, client.deviceID)
				close(client.done)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("deviceID", client.deviceID))
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WriteData is one outbound websocket frame.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// done is closed on unregister. The respond goroutine outlives readPump,
	// so shutdown is signalled here; send itself is never closed.
	done chan struct{}

	deviceID string
	logger   *zap.Logger

	// Interaction state for this connection.
	machine *interaction.Machine

	// Capture buffer filled between listening_start and listening_end,
	// bounded by maxCapture.
	capture    []float32
	maxCapture int

	mutex sync.Mutex
}

// HandleWebSocketWithAuth handles websocket requests with a
// pre-authenticated device ID.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, deviceID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan WriteData, 256),
		done:       make(chan struct{}),
		deviceID:   deviceID,
		logger:     logger,
		machine:    interaction.NewMachine(logger),
		maxCapture: stream.MaxUtteranceSamples,
	}

	client.hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work
	// in new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) processMessage(message []byte) {
	msg, err := ParseInbound(message)
	if err != nil {
		c.logger.Error("Failed to parse message", zap.Error(err))
		c.sendText(OutboundMessage{Type: TypeError, Error: "invalid message"})
		return
	}

	switch msg.Type {
	case TypeListeningStart:
		c.handleListeningStart()
	case TypeListeningEnd:
		c.handleListeningEnd()
	default:
		c.logger.Warn("Unknown message type", zap.String("type", msg.Type))
	}
}

// processBinaryAudioChunk buffers float32 samples while listening. Chunks
// outside the listening state are dropped.
func (c *Client) processBinaryAudioChunk(data []byte) {
	samples, err := audio.DecodeFloat32(data)
	if err != nil {
		c.logger.Warn("Dropping malformed audio chunk",
			zap.String("deviceID", c.deviceID),
			zap.Error(err))
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.machine.State() != entities.StateListening {
		c.logger.Warn("Received audio chunk outside listening state",
			zap.String("deviceID", c.deviceID),
			zap.String("state", string(c.machine.State())))
		return
	}
	if len(c.capture)+len(samples) > c.maxCapture {
		c.logger.Error("Capture exceeds utterance limit, failing round",
			zap.String("deviceID", c.deviceID),
			zap.Int("samples", len(c.capture)+len(samples)),
			zap.Int("limit", c.maxCapture))
		c.capture = c.capture[:0]
		c.machine.Fail("utterance too long")
		c.sendText(OutboundMessage{Type: TypeError, Error: "utterance too long"})
		return
	}
	c.capture = append(c.capture, samples...)
}

func (c *Client) handleListeningStart() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.machine.StartListening() {
		c.sendText(OutboundMessage{Type: TypeError, Error: "already in a round"})
		return
	}
	c.capture = c.capture[:0]

	c.logger.Info("Audio capture started", zap.String("deviceID", c.deviceID))
	c.sendText(OutboundMessage{
		Type:      TypeListeningStart,
		Timestamp: time.Now().Unix(),
	})
}

func (c *Client) handleListeningEnd() {
	c.mutex.Lock()
	if !c.machine.StopListening() {
		c.mutex.Unlock()
		c.sendText(OutboundMessage{Type: TypeError, Error: "not listening"})
		return
	}
	utterance := make([]float32, len(c.capture))
	copy(utterance, c.capture)
	c.capture = c.capture[:0]
	c.mutex.Unlock()

	c.sendText(OutboundMessage{
		Type:      TypeListeningEnd,
		Timestamp: time.Now().Unix(),
	})

	go c.respond(utterance)
}

// respond runs the pipeline for one captured utterance and streams the
// response audio back.
func (c *Client) respond(utterance []float32) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := c.hub.conversation.Respond(ctx, utterance)
	if err != nil {
		c.logger.Error("Round failed",
			zap.String("deviceID", c.deviceID),
			zap.Error(err))
		c.machine.Fail(err.Error())
		c.sendText(OutboundMessage{Type: TypeError, Error: "processing failed"})
		return
	}
	c.machine.ResponseReady()

	c.sendText(OutboundMessage{
		Type:         TypeSpeakingStart,
		Timestamp:    time.Now().Unix(),
		UserText:     result.UserText,
		ResponseText: result.ResponseText,
		Category:     result.Category,
	})

	for offset := 0; offset < len(result.Audio); offset += stream.ChunkSamples {
		end := offset + stream.ChunkSamples
		if end > len(result.Audio) {
			end = len(result.Audio)
		}
		if !c.sendBinary(audio.EncodeFloat32(result.Audio[offset:end])) {
			// The client unregistered mid-response; nothing left to stream to.
			return
		}
	}

	c.sendText(OutboundMessage{
		Type:      TypeSpeakingEnd,
		Timestamp: time.Now().Unix(),
	})
	c.machine.PlaybackComplete()
}

// sendBinary queues one binary frame, giving up when the client has
// unregistered. Reports whether the frame was queued.
func (c *Client) sendBinary(payload []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- WriteData{Type: websocket.BinaryMessage, Payload: payload}:
		return true
	}
}

func (c *Client) sendText(msg OutboundMessage) {
	select {
	case <-c.done:
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: msg.Encode()}:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full",
			zap.String("deviceID", c.deviceID),
			zap.String("type", msg.Type))
	}
}
