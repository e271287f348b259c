package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
)

// OutboxRepoMongoDB implementa sharedDomain.OutboxRepository sobre MongoDB.
// Aquí no hay AppendTx: la atomicidad mutación+evento en Mongo se consigue
// con sesiones/transacciones del driver en el repositorio de negocio.
type OutboxRepoMongoDB struct {
	outboxColl *mongo.Collection
}

func NewOutboxRepoMongoDB(client *mongo.Client, dbName string) *OutboxRepoMongoDB {
	outboxColl := client.Database(dbName).Collection("outbox")
	return &OutboxRepoMongoDB{outboxColl: outboxColl}
}

// mongoOutboxEvent es un helper para mapear los documentos de la base de datos a un struct.
type mongoOutboxEvent struct {
	ID            uuid.UUID  `bson:"_id"`
	AggregateType string     `bson:"aggregateType"`
	AggregateID   string     `bson:"aggregateId"`
	EventType     string     `bson:"eventType"`
	Payload       []byte     `bson:"payload"`
	CorrelationID string     `bson:"correlationId"`
	Status        string     `bson:"status"`
	CreatedAt     time.Time  `bson:"createdAt"`
	SentAt        *time.Time `bson:"sentAt,omitempty"`
}

// Append inserta un evento PENDING en la colección outbox.
func (r *OutboxRepoMongoDB) Append(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	doc := mongoOutboxEvent{
		ID:            evt.ID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		CorrelationID: evt.CorrelationID,
		Status:        sharedDomain.OutboxStatusPending,
		CreatedAt:     evt.CreatedAt,
	}
	_, err := r.outboxColl.InsertOne(ctx, doc)
	return err
}

// FetchUnsent obtiene los eventos PENDING ordenados por fecha de creación.
func (r *OutboxRepoMongoDB) FetchUnsent(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	filter := bson.M{"status": sharedDomain.OutboxStatusPending}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var mo mongoOutboxEvent
		if err := cursor.Decode(&mo); err != nil {
			return nil, err
		}
		events = append(events, fromMongoOutboxEvent(&mo))
	}

	return events, cursor.Err()
}

// MarkSent marca el evento como SENT de forma idempotente: un documento ya
// SENT no matchea el filtro, pero existir es suficiente para no fallar.
func (r *OutboxRepoMongoDB) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	filter := bson.M{"_id": id, "status": sharedDomain.OutboxStatusPending}
	update := bson.M{"$set": bson.M{"status": sharedDomain.OutboxStatusSent, "sentAt": now}}

	res, err := r.outboxColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		count, err := r.outboxColl.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("outbox event not found: %s", id)
		}
	}

	return nil
}

// fromMongoOutboxEvent es un helper para convertir de BSON a nuestro tipo de dominio.
func fromMongoOutboxEvent(mo *mongoOutboxEvent) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            mo.ID,
		AggregateType: mo.AggregateType,
		AggregateID:   mo.AggregateID,
		EventType:     mo.EventType,
		Payload:       mo.Payload,
		CorrelationID: mo.CorrelationID,
		Status:        mo.Status,
		CreatedAt:     mo.CreatedAt,
		SentAt:        mo.SentAt,
	}
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoMongoDB)(nil)
