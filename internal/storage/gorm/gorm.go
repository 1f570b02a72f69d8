// Package gormstorage implements the storage.Backend interface on top of GORM
// with internal queues and a background DB writer goroutine. The postgres and
// sqlite backends embed it and only differ in how the connection is made.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fleetsim/vehiclesim/internal/database"
	"github.com/fleetsim/vehiclesim/internal/model"
	"github.com/fleetsim/vehiclesim/internal/model/convert"
	"github.com/fleetsim/vehiclesim/internal/queue"
	"github.com/fleetsim/vehiclesim/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often the writer drains the queues when no push wakes it.
const DefaultFlushInterval = 2 * time.Second

// ErrNoRun is returned when recording before StartRun.
var ErrNoRun = errors.New("no run started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB may be nil, in which case writes stay queued (used by tests).
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Vehicles    *queue.Queue[model.Vehicle]
	Transitions *queue.Queue[model.Transition]
}

func newQueues() *queues {
	return &queues{
		Vehicles:    queue.New[model.Vehicle](),
		Transitions: queue.New[model.Transition](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	runMu sync.RWMutex
	runID string

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB != nil {
		b.deps.Logger.Info().Str("dialect", b.deps.DB.Name()).Msg("Migrating schema")
		if err := database.Migrate(b.deps.DB); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Flush()
}

// StartRun inserts the run synchronously so that later rows can reference it.
func (b *Backend) StartRun(run *core.Run) error {
	if run == nil {
		return errors.New("gorm: nil run")
	}
	if b.deps.DB != nil {
		gormRun := convert.CoreToRun(*run)
		if err := b.deps.DB.Create(&gormRun).Error; err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
	}

	b.runMu.Lock()
	b.runID = run.ID
	b.runMu.Unlock()
	return nil
}

// EndRun flushes the queues and stamps the run's end time.
func (b *Backend) EndRun() error {
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	if err := b.Flush(); err != nil {
		return err
	}
	if b.deps.DB != nil {
		err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).
			Update("ended_at", convert.EndedAt(time.Now().UTC())).Error
		if err != nil {
			return fmt.Errorf("failed to end run %s: %w", runID, err)
		}
	}

	b.runMu.Lock()
	b.runID = ""
	b.runMu.Unlock()
	return nil
}

// AddVehicle converts a core vehicle to GORM and pushes to the write queue.
func (b *Backend) AddVehicle(v *core.Vehicle) error {
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	v.RunID = runID
	b.queues.Vehicles.Push(convert.CoreToVehicle(*v))
	return nil
}

// RecordTransition converts and queues a transition.
func (b *Backend) RecordTransition(e *core.TransitionEvent) error {
	if e == nil {
		return errors.New("gorm: nil transition event")
	}
	runID := b.currentRun()
	if runID == "" {
		return ErrNoRun
	}
	b.queues.Transitions.Push(convert.CoreToTransition(runID, *e))
	return nil
}

// Pending returns the number of queued rows not yet written.
func (b *Backend) Pending() int {
	return b.queues.Vehicles.Len() + b.queues.Transitions.Len()
}

// Flush writes every queued row now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	return errors.Join(
		writeQueue(b.deps.DB, b.queues.Vehicles, "vehicles", b.deps.Logger),
		writeQueue(b.deps.DB, b.queues.Transitions, "transitions", b.deps.Logger),
	)
}

func (b *Backend) currentRun() string {
	b.runMu.RLock()
	defer b.runMu.RUnlock()
	return b.runID
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items are put back at the head for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("table", name).Int("count", len(items)).Msg("Error creating rows")
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("commit %s: %w", name, err)
	}

	log.Trace().Str("table", name).Int("count", len(items)).Msg("Rows written")
	return nil
}

// writeLoop drains the queues when woken by a push or the flush ticker.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
		case <-b.queues.Transitions.Ready():
		case <-b.queues.Vehicles.Ready():
		}
		if err := b.Flush(); err != nil {
			b.deps.Logger.Warn().Err(err).Msg("DB write cycle failed, retrying")
		}
	}
}
