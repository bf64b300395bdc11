package postgres

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"price-prediction-service/internal/core/domain"
	ports "price-prediction-service/internal/core/ports/output"
)

const predictionLogTable = "prediction_log"

var predictionLogColumns = []string{
	"id", "request_id", "model_name", "model_version", "status",
	"prediction", "error_code", "latency_us", "created_at",
}

const createPredictionLogTable = `
	CREATE TABLE IF NOT EXISTS prediction_log (
		id            UUID PRIMARY KEY,
		request_id    TEXT NOT NULL,
		model_name    TEXT NOT NULL,
		model_version TEXT NOT NULL,
		status        TEXT NOT NULL,
		prediction    DOUBLE PRECISION NOT NULL,
		error_code    TEXT NOT NULL DEFAULT '',
		latency_us    BIGINT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)
`

// DB is the subset of *pgxpool.Pool the prediction log uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type PredictionLogOptions struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

// PredictionLog writes prediction records to Postgres in batches from a
// single background writer. Record never blocks: when the buffer is full the
// record is dropped and counted.
type PredictionLog struct {
	db      DB
	opts    PredictionLogOptions
	metrics ports.PredictionMetrics

	records   chan *domain.PredictionRecord
	closing   chan struct{}
	done      chan struct{}
	startOnce sync.Once

	// mu orders Record's enqueue against Close so nothing is enqueued once
	// the writer may have finished draining.
	mu     sync.RWMutex
	closed bool
}

func NewPredictionLog(db DB, opts PredictionLogOptions, metrics ports.PredictionMetrics) *PredictionLog {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}

	return &PredictionLog{
		db:      db,
		opts:    opts,
		metrics: metrics,
		records: make(chan *domain.PredictionRecord, opts.BufferSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// EnsureSchema creates the prediction_log table if it does not exist.
func (l *PredictionLog) EnsureSchema(ctx context.Context) error {
	_, err := l.db.Exec(ctx, createPredictionLogTable)
	return err
}

// Start launches the background writer.
func (l *PredictionLog) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

func (l *PredictionLog) Record(rec *domain.PredictionRecord) {
	l.mu.RLock()
	if l.closed {
		l.mu.RUnlock()
		l.drop(rec, "prediction log closed")
		return
	}
	select {
	case l.records <- rec:
		l.mu.RUnlock()
	default:
		l.mu.RUnlock()
		l.drop(rec, "prediction log buffer full")
	}
}

// Close stops accepting records and waits for buffered ones to be written,
// or for ctx to expire.
func (l *PredictionLog) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.closing)
	}
	l.mu.Unlock()
	l.Start()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *PredictionLog) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]*domain.PredictionRecord, 0, l.opts.BatchSize)
	for {
		select {
		case rec := <-l.records:
			batch = append(batch, rec)
			if len(batch) >= l.opts.BatchSize {
				batch = l.flush(batch)
			}
		case <-ticker.C:
			batch = l.flush(batch)
		case <-l.closing:
			for {
				select {
				case rec := <-l.records:
					batch = append(batch, rec)
					if len(batch) >= l.opts.BatchSize {
						batch = l.flush(batch)
					}
				default:
					l.flush(batch)
					return
				}
			}
		}
	}
}

func (l *PredictionLog) flush(batch []*domain.PredictionRecord) []*domain.PredictionRecord {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.opts.WriteTimeout)
	defer cancel()

	rows := pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
		rec := batch[i]
		return []any{
			rec.ID, rec.RequestID, rec.ModelName, rec.ModelVersion, string(rec.Status),
			rec.Value, rec.ErrorCode, rec.Latency.Microseconds(), rec.CreatedAt,
		}, nil
	})

	n, err := l.db.CopyFrom(ctx, pgx.Identifier{predictionLogTable}, predictionLogColumns, rows)
	if err != nil {
		log.WithError(err).WithField("records", len(batch)).Warn("failed to write prediction log batch")
	} else {
		log.WithField("records", n).Debug("prediction log batch written")
	}

	return batch[:0]
}

func (l *PredictionLog) drop(rec *domain.PredictionRecord, reason string) {
	l.metrics.RecordDropped()
	log.WithFields(log.Fields{
		"request_id": rec.RequestID,
		"reason":     reason,
	}).Warn("prediction record dropped")
}
