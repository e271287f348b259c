package bus

import "context"

// EventPublisher es la capacidad de publicar en el broker. Se inyecta
// explícitamente en cada componente que emite eventos; no hay singleton
// global. El timeout se acota con el contexto del caller.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, payload []byte) error
}

// Message es un evento entregado por el broker a un consumidor.
type Message struct {
	Topic   string
	Key     []byte
	Payload []byte
}

// EventHandler procesa un mensaje entrante. Un error deja el offset sin
// confirmar en los adapters que soportan commit manual.
type EventHandler interface {
	Handle(ctx context.Context, msg Message) error
}
