package events

import (
	"encoding/json"
	"time"
)

// IntegrationEvent es el sobre común de todos los eventos que viajan por el
// broker: el tipo decide el manejo y Data lleva el contenido específico.
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Marshal construye el sobre para un payload de dominio y lo serializa.
func Marshal(eventType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(IntegrationEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
