package relayer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/blocodev/wallethub/internal/shared/domain"
	sharedBus "github.com/blocodev/wallethub/internal/shared/infra/bus"
)

// DispatchRecorder recibe los eventos ya publicados para análisis posterior.
// Es opcional: un Dispatcher con recorder nil simplemente no registra nada.
type DispatchRecorder interface {
	RecordBatch(ctx context.Context, events []sharedDomain.OutboxEvent) error
}

// Dispatcher procesa eventos pendientes de la tabla outbox de forma genérica:
// polling periódico, publicación con timeout acotado y MarkSent por evento.
//
// Entrega al menos una vez: un crash entre publicar y marcar puede republicar
// el mismo evento, los consumidores deben ser idempotentes. Un fallo de
// publicación deja la fila PENDING y se reintenta en el siguiente ciclo,
// sin backoff ni cuarentena (hueco conocido de producción).
type Dispatcher struct {
	repo           sharedDomain.OutboxRepository
	publisher      sharedBus.EventPublisher
	topics         map[string]string
	interval       time.Duration
	batchSize      int
	publishTimeout time.Duration
	recorder       DispatchRecorder
	log            *zap.Logger

	inFlight atomic.Bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewDispatcher(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	topics map[string]string,
	interval time.Duration,
	batchSize int,
	publishTimeout time.Duration,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:           repo,
		publisher:      publisher,
		topics:         topics,
		interval:       interval,
		batchSize:      batchSize,
		publishTimeout: publishTimeout,
		log:            log,
	}
}

// WithRecorder registra un sink analítico para los eventos despachados.
func (d *Dispatcher) WithRecorder(rec DispatchRecorder) *Dispatcher {
	d.recorder = rec
	return d
}

// Start arranca el bucle de polling en segundo plano. Detener entre ciclos
// no pierde datos: todo el progreso ya está en la tabla como PENDING/SENT.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		d.log.Info("🚀 Outbox dispatcher iniciado", zap.Duration("interval", d.interval))

		for {
			select {
			case <-runCtx.Done():
				d.log.Info("🛑 Outbox dispatcher detenido.")
				return
			case <-ticker.C:
				d.ProcessBatch(runCtx)
			}
		}
	}()
}

// Stop cancela el bucle y espera a que termine el ciclo en curso.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// ProcessBatch ejecuta un ciclo de despacho. Single-flight: si un ciclo
// anterior sigue en curso, este retorna sin hacer nada para no despachar
// el mismo lote dos veces en paralelo.
func (d *Dispatcher) ProcessBatch(ctx context.Context) {
	if !d.inFlight.CompareAndSwap(false, true) {
		d.log.Debug("Ciclo de outbox todavía en curso, tick ignorado")
		return
	}
	defer d.inFlight.Store(false)

	events, err := d.repo.FetchUnsent(ctx, d.batchSize)
	if err != nil {
		d.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return
	}
	if len(events) > 0 {
		d.log.Info(fmt.Sprintf("📬 %d eventos encontrados para procesar", len(events)))
	}

	var dispatched []sharedDomain.OutboxEvent
	for _, evt := range events {
		// Un evento fallido no aborta el resto del lote.
		if d.publishAndMark(ctx, evt) {
			dispatched = append(dispatched, evt)
		}
	}

	if d.recorder != nil && len(dispatched) > 0 {
		if err := d.recorder.RecordBatch(ctx, dispatched); err != nil {
			d.log.Warn("⚠️ No se pudo registrar el lote en analytics", zap.Error(err))
		}
	}
}

// topicFor deriva el topic del tipo de evento: entrada del registro o, en su
// defecto, el propio tipo de evento.
func (d *Dispatcher) topicFor(eventType string) string {
	if topic, ok := d.topics[eventType]; ok {
		return topic
	}
	return eventType
}

func (d *Dispatcher) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) bool {
	// 1. Publicar con timeout acotado: un broker colgado no bloquea el ciclo.
	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	topic := d.topicFor(evt.EventType)
	if err := d.publisher.Publish(pubCtx, topic, []byte(evt.AggregateID), evt.Payload); err != nil {
		d.log.Warn("⚠️ No se pudo publicar evento, queda PENDING para reintento",
			zap.String("event_id", evt.ID.String()),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return false
	}

	// 2. Marcar como SENT en la DB.
	if err := d.repo.MarkSent(ctx, evt.ID); err != nil {
		// El evento ya se publicó: se volverá a publicar en el próximo ciclo
		// (entrega al menos una vez).
		d.log.Warn("⚠️ No se pudo marcar evento como SENT",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false
	}

	d.log.Info("✅ Evento publicado y marcado",
		zap.String("event_id", evt.ID.String()),
		zap.String("topic", topic),
	)
	return true
}
