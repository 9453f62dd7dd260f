package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/textmill/textmill/internal/masking"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeConversion represents a completed conversion request
	EventTypeConversion EventType = "conversion"
	// EventTypeMasking represents a PII masking event
	EventTypeMasking EventType = "masking"
	// EventTypeRequestLog represents a request logging event
	EventTypeRequestLog EventType = "request_log"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// ConversionEvent represents a completed conversion request
type ConversionEvent struct {
	RequestID   string  `json:"request_id"`
	Operation   string  `json:"operation"`
	InputBytes  int     `json:"input_bytes"`
	OutputBytes int     `json:"output_bytes"`
	Success     bool    `json:"success"`
	ErrorKind   string  `json:"error_kind,omitempty"`
	CacheHit    bool    `json:"cache_hit"`
	DurationMS  float64 `json:"duration_ms"`
}

// MaskingEvent represents a PII masking event
type MaskingEvent struct {
	RequestID     string            `json:"request_id"`
	ClientIP      string            `json:"client_ip"`
	Findings      []masking.Finding `json:"findings"`
	TotalFindings int               `json:"total_findings"`
	DurationMS    float64           `json:"duration_ms"`
}

// RequestLogEvent represents a request logging event
type RequestLogEvent struct {
	RequestID    string        `json:"request_id"`
	Method       string        `json:"method"`
	Path         string        `json:"path"`
	StatusCode   int           `json:"status_code"`
	ClientIP     string        `json:"client_ip"`
	UserAgent    string        `json:"user_agent,omitempty"`
	Duration     time.Duration `json:"duration"`
	RequestSize  int64         `json:"request_size"`
	ResponseSize int64         `json:"response_size"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalConversions int64  `json:"total_conversions"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
