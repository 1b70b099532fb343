package engine

import (
	"context"
	"sync"

	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/infra/resilience"

	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 32
	defaultMaxConcurrency = 50
)

// Dispatcher serializa o processamento por contato: mensagens do mesmo
// wa_id são tratadas em ordem por um worker dedicado, enquanto contatos
// diferentes processam em paralelo. Sem isso, duas mensagens rápidas do
// mesmo número poderiam ler o mesmo estado e transicionar duas vezes.
type Dispatcher struct {
	engine   *Engine
	logger   *zap.Logger
	bulkhead *resilience.Bulkhead

	mu      sync.Mutex
	queues  map[string]chan domain.InboundMessage
	wg      sync.WaitGroup
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewDispatcher(engine *Engine, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		engine:   engine,
		logger:   logger,
		bulkhead: resilience.NewBulkhead(defaultMaxConcurrency),
		queues:   make(map[string]chan domain.InboundMessage),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type DispatcherOption func(*Dispatcher)

// WithMaxConcurrency limita quantos contatos processam simultaneamente.
// Mensagens além do limite esperam na fila do próprio contato.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bulkhead = resilience.NewBulkhead(n)
		}
	}
}

// Enqueue entrega a mensagem para o worker do contato, criando-o na
// primeira mensagem. Bloqueia se a fila do contato estiver cheia.
func (d *Dispatcher) Enqueue(msg domain.InboundMessage) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher fechado, mensagem descartada",
			zap.String("wa_id", msg.From),
		)
		return
	}
	q, ok := d.queues[msg.From]
	if !ok {
		q = make(chan domain.InboundMessage, defaultQueueSize)
		d.queues[msg.From] = q
		d.wg.Add(1)
		go d.worker(msg.From, q)
	}
	d.mu.Unlock()

	q <- msg
}

// Shutdown para de aceitar mensagens, drena as filas e espera os
// workers terminarem a mensagem em curso.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// Cancela o processamento em curso e desiste de esperar.
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) worker(waID string, q chan domain.InboundMessage) {
	defer d.wg.Done()
	for msg := range q {
		if err := d.bulkhead.Acquire(d.baseCtx); err != nil {
			return
		}
		err := d.engine.HandleMessage(d.baseCtx, msg)
		d.bulkhead.Release()
		if err != nil {
			d.logger.Error("falha processando mensagem",
				zap.String("wa_id", waID),
				zap.Error(err),
			)
		}
	}
}
