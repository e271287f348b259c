package events

import (
	"context"
	"sync"

	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// InMemoryBus implementa un bus de eventos en memoria para despliegues
// locales y tests. Reparte cada mensaje a todos los suscriptores del topic.
type InMemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan sharedBus.Message
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.EventPublisher = (*InMemoryBus)(nil)

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subscribers: make(map[string][]chan sharedBus.Message),
	}
}

// Publish envía el evento a todos los suscriptores del topic. Un suscriptor
// con el buffer lleno pierde el mensaje; igual que un broker con un
// consumidor atascado, no bloqueamos al publicador.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, key, payload []byte) error {
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	msg := sharedBus.Message{Topic: topic, Key: key, Payload: payload}
	for _, subChan := range subs {
		select {
		case subChan <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Subscribe registra un nuevo oyente para el topic.
func (b *InMemoryBus) Subscribe(topic string, bufferSize int) <-chan sharedBus.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	subChan := make(chan sharedBus.Message, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], subChan)
	return subChan
}
