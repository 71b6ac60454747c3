// Package protocol defines the JSON wire envelopes exchanged between the
// server and its websocket clients.
//
// Server to client messages are an Envelope of `{type, data}`. Client to
// server messages are a Command of `{action, data}`. Events are marshaled
// once into bytes and fanned out as-is to every client.
package protocol

import (
	"encoding/json"
	"time"
)

// Event types sent from the server to clients.
const (
	TypeStatus   = "status"
	TypeLog      = "log"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeMetrics  = "metrics"
	TypeCPUStats = "cpu_stats"
	TypePong     = "pong"
)

// Actions accepted from clients.
const (
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionGetStatus = "get_status"
	ActionPing      = "ping"
)

// Log levels for log events.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Envelope is a server-to-client message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ServerEnvelope is the client-side decoding form of an Envelope: the
// payload stays raw until the type is known.
type ServerEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Command is a client-to-server message. Unrecognized actions and malformed
// payloads are ignored by the server, so decoding is deliberately lax.
type Command struct {
	Action string      `json:"action"`
	Data   CommandData `json:"data,omitempty"`
}

// CommandData carries the optional parameters of a start command.
type CommandData struct {
	Operations []OperationSpec `json:"operations,omitempty"`
	NumWorkers int             `json:"num_workers,omitempty"`
}

// OperationSpec is the wire form of a single image operation.
type OperationSpec struct {
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Status mirrors the server's state object, broadcast on every transition
// and sent to each client on connect.
type Status struct {
	State     string `json:"state"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Workers   int    `json:"workers"`
	CPUCount  int    `json:"cpu_count"`
	Imaging   bool   `json:"imaging"`
	Telemetry bool   `json:"telemetry"`
}

// LogEntry is the payload of a log event.
type LogEntry struct {
	Message   string `json:"message"`
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
}

// Progress is the payload of a progress event, broadcast once per completed
// task in finish order.
type Progress struct {
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	File       string `json:"file"`
}

// TaskResult is the payload of a result event for one successfully
// processed item. Proceso is the advisory worker identifier.
type TaskResult struct {
	File         string   `json:"file"`
	Time         float64  `json:"time"`
	Operations   []string `json:"operations"`
	SizeBeforeKB float64  `json:"size_before_kb"`
	SizeAfterKB  float64  `json:"size_after_kb"`
	SizeOriginal [2]int   `json:"size_original"`
	SizeFinal    [2]int   `json:"size_final"`
	Proceso      string   `json:"proceso"`
}

// BatchMetrics is the payload of a metrics event, broadcast once when a
// batch drains without having been cancelled.
type BatchMetrics struct {
	Speedup    float64 `json:"speedup"`
	Efficiency float64 `json:"efficiency"`
	TotalTime  float64 `json:"total_time"`
	Successful int     `json:"successful"`
	Failed     int     `json:"failed"`
	Total      int     `json:"total"`
	AvgTime    float64 `json:"avg_time"`
	Workers    int     `json:"workers"`
}

// CPUStats is the payload of a cpu_stats telemetry event.
type CPUStats struct {
	Cores      []float64 `json:"cores"`
	Total      float64   `json:"total"`
	RAMPercent float64   `json:"ram_percent"`
	RAMUsedGB  float64   `json:"ram_used_gb"`
	RAMTotalGB float64   `json:"ram_total_gb"`
}

// Marshal encodes an event envelope for the wire.
func Marshal(eventType string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, Data: data})
}

// MarshalLog encodes a log event, stamping it with the current wall-clock
// time in HH:MM:SS form.
func MarshalLog(message, level string) ([]byte, error) {
	return Marshal(TypeLog, LogEntry{
		Message:   message,
		Level:     level,
		Timestamp: time.Now().Format("15:04:05"),
	})
}

// MarshalPong encodes the ping acknowledgment.
func MarshalPong() ([]byte, error) {
	return json.Marshal(Envelope{Type: TypePong})
}
