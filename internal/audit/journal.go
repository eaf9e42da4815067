package audit

/*
Journal — асинхронный журнал аттестаций.

- Non-blocking: Log не ждет БД, события уходят в буферизованный канал.
- Batching: воркер копит события и пишет пачкой по размеру или по таймеру.
- Drain: Stop закрывает канал, воркер вычитывает остаток и делает финальный flush.
*/

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []AttestationEvent) error
}

type Auditor interface {
	Log(event AttestationEvent)
}

type Journal struct {
	ch            chan AttestationEvent
	repo          StorageInterface
	logger        *zap.Logger
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup

	// mu: Log держит RLock на время отправки, Stop берет Lock вокруг close(ch)
	mu       sync.RWMutex
	isClosed bool
}

func NewJournal(repo StorageInterface, logger *zap.Logger, bufferSize, batchSize int, flushInterval time.Duration) *Journal {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Journal{
		ch:            make(chan AttestationEvent, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "journal")),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

func (j *Journal) Start() {
	j.wg.Add(1)
	go j.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (j *Journal) Stop() {
	j.mu.Lock()
	if j.isClosed {
		j.mu.Unlock()
		return
	}
	j.isClosed = true
	j.logger.Info("stopping journal: closing channel and flushing buffer...")
	close(j.ch)
	j.mu.Unlock()

	j.wg.Wait()
	j.logger.Info("journal stopped gracefully")
}

// Len — текущая заполненность буфера (для метрики backpressure).
func (j *Journal) Len() int { return len(j.ch) }

func (j *Journal) Log(event AttestationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	if j.isClosed {
		j.logger.Warn("journal event dropped: journal is stopping", zap.String("id", event.ID))
		return
	}

	// Load Shedding: при переполнении не блокируем запрос, а пишем в лог
	select {
	case j.ch <- event:
	default:
		j.logger.Error("journal_buffer_overflow",
			zap.String("scenario", event.ScenarioType),
			zap.String("trace_id", event.TraceID),
			zap.String("attestation_id", event.AttestationID),
		)
	}
}

func (j *Journal) worker() {
	defer j.wg.Done()

	batch := make([]AttestationEvent, 0, j.batchSize)
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Используем Background, так как основной контекст может быть уже закрыт
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := j.repo.WriteBatch(ctx, batch); err != nil {
			j.logger.Error("journal flush failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = make([]AttestationEvent, 0, j.batchSize)
	}

	for {
		select {
		case event, ok := <-j.ch:
			if !ok {
				// Канал закрыт в Stop(): всё из очереди уже вычитано
				flush()
				j.logger.Info("journal worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= j.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// LogStorage пишет пачки в структурированный лог. Используется, когда БД не настроена.
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("attestation-log")}
}

func (s *LogStorage) WriteBatch(_ context.Context, events []AttestationEvent) error {
	for _, e := range events {
		s.logger.Info("attestation event",
			zap.String("id", e.ID),
			zap.String("trace_id", e.TraceID),
			zap.String("scenario", e.ScenarioType),
			zap.String("status", e.Status),
			zap.String("attestation_id", e.AttestationID),
			zap.String("tx_hash", e.TxHash),
			zap.String("content_hash", e.ContentHash),
			zap.String("error", e.Error),
			zap.Int64("duration_ms", e.DurationMs),
			zap.Time("timestamp", e.Timestamp),
		)
	}
	return nil
}
