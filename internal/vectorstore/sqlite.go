package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var sqliteTracer = otel.Tracer("docmind.vectorstore.sqlite")

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS DocumentVectors (
    Id INTEGER PRIMARY KEY AUTOINCREMENT,
    FileName TEXT,
    ChunkIndex INTEGER,
    OriginalText TEXT,
    Vector BLOB
)`
	insertSQL = `INSERT INTO DocumentVectors (FileName, ChunkIndex, OriginalText, Vector) VALUES (?, ?, ?, ?)`
	selectSQL = `SELECT Id, FileName, ChunkIndex, OriginalText, Vector FROM DocumentVectors ORDER BY Id`
	countSQL  = `SELECT COUNT(*) FROM DocumentVectors`
	deleteSQL = `DELETE FROM DocumentVectors`
)

// InMemoryPath selects a private in-memory SQLite database.
const InMemoryPath = ":memory:"

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path, ensures the
// DocumentVectors table exists and clears it. Every session starts empty.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrStoreIO, path, err)
	}
	// A single connection keeps ":memory:" databases shared across calls
	// and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: creating table: %v", ErrStoreIO, err)
	}
	if _, err := db.ExecContext(ctx, deleteSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: clearing table: %v", ErrStoreIO, err)
	}

	logger.Info("SQLiteStore initialized", zap.String("path", path))
	RecordsStored.Set(0)

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, fileName string, chunkIndex int, text string, vector []float32) (int64, error) {
	ctx, span := sqliteTracer.Start(ctx, "SQLiteStore.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("file_name", fileName),
		attribute.Int("chunk_index", chunkIndex),
		attribute.Int("dimension", len(vector)),
	)

	res, err := s.db.ExecContext(ctx, insertSQL, fileName, chunkIndex, text, EncodeVector(vector))
	if err != nil {
		err = fmt.Errorf("%w: inserting record: %v", ErrStoreIO, err)
		failSpan(span, err)
		SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		err = fmt.Errorf("%w: reading record id: %v", ErrStoreIO, err)
		failSpan(span, err)
		SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	SavesTotal.WithLabelValues("success").Inc()
	RecordsStored.Inc()
	span.SetAttributes(attribute.Int64("id", id))
	span.SetStatus(codes.Ok, "success")
	return id, nil
}

// TopK implements Store. Every call reads a fresh snapshot of the table.
func (s *SQLiteStore) TopK(ctx context.Context, query []float32, k int) ([]Result, error) {
	ctx, span := sqliteTracer.Start(ctx, "vectorstore.TopK")
	defer span.End()

	start := time.Now()
	defer func() { TopKDuration.Observe(time.Since(start).Seconds()) }()

	span.SetAttributes(attribute.Int("k", k), attribute.Int("dimension", len(query)))

	if k <= 0 {
		return []Result{}, nil
	}

	records, err := s.load(ctx)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	results, err := Rank(query, records, k)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("scanned", len(records)),
		attribute.Int("results_count", len(results)),
	)
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

func (s *SQLiteStore) load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: querying records: %v", ErrStoreIO, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec  Record
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.ChunkIndex, &rec.Text, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning record: %v", ErrStoreIO, err)
		}
		rec.Vector, err = DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating records: %v", ErrStoreIO, err)
	}
	return records, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting records: %v", ErrStoreIO, err)
	}
	return n, nil
}

// Reset implements Store.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, deleteSQL); err != nil {
		return fmt.Errorf("%w: clearing table: %v", ErrStoreIO, err)
	}
	RecordsStored.Set(0)
	s.logger.Debug("vector store reset", zap.String("path", s.path))
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing database: %v", ErrStoreIO, err)
	}
	return nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
