package sink

import (
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oomph-ac/oflight/detection"
	"github.com/oomph-ac/oflight/oerror"
	_ "modernc.org/sqlite"
)

// recorderBatch is the maximum amount of violations written in one transaction.
const recorderBatch = 256

type record struct {
	id uuid.UUID
	v  detection.Violation
}

// Recorder persists violations to a sqlite database. Violations are written by a single goroutine, so
// that HandleViolation never blocks on the disk. Violations are dropped if the writer falls behind.
type Recorder struct {
	db  *sql.DB
	log *slog.Logger

	ch   chan record
	wg   sync.WaitGroup
	once sync.Once

	// mu is held for reading while queueing a violation, and for writing while closing ch.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// OpenRecorder opens or creates the database at path.
func OpenRecorder(path string, log *slog.Logger) (*Recorder, error) {
	if path == "" {
		return nil, oerror.New("empty recorder path")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS violations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity TEXT NOT NULL,
			tick INTEGER NOT NULL,
			family TEXT NOT NULL,
			reason TEXT NOT NULL,
			message TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			failed INTEGER NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS violations_entity ON violations(entity, tick);`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, oerror.New("init recorder: %w", err)
		}
	}

	r := &Recorder{db: db, log: log, ch: make(chan record, 4096)}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
	return r, nil
}

func (r *Recorder) HandleViolation(id uuid.UUID, v detection.Violation) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.ch <- record{id: id, v: v}:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the amount of violations dropped because the writer fell behind.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close writes all pending violations and closes the database.
func (r *Recorder) Close() error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.ch)
		r.mu.Unlock()

		r.wg.Wait()
		err = r.db.Close()
	})
	return err
}

func (r *Recorder) loop() {
	batch := make([]record, 0, recorderBatch)
	for rec := range r.ch {
		batch = append(batch[:0], rec)
	fill:
		for len(batch) < recorderBatch {
			select {
			case rec, ok := <-r.ch:
				if !ok {
					break fill
				}
				batch = append(batch, rec)
			default:
				break fill
			}
		}
		if err := r.write(batch); err != nil {
			r.log.Error("unable to record violations", "count", len(batch), "err", err)
		}
	}
}

func (r *Recorder) write(batch []record) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO violations(entity,tick,family,reason,message,x,y,z,failed,data) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range batch {
		v := rec.v
		if _, err := stmt.Exec(rec.id.String(), v.Tick, v.Family.String(), v.Reason, v.Message,
			v.Position.X(), v.Position.Y(), v.Position.Z(), v.Failed, v.DataString()); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
