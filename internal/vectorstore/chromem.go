package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("docmind.vectorstore.chromem")

const (
	chromemCollection = "document_vectors"
	metaFileName      = "file_name"
	metaChunkIndex    = "chunk_index"
)

// ChromemStore implements Store on an in-memory chromem-go collection.
//
// chromem normalizes vectors on insert, so zero-magnitude and non-finite
// vectors are rejected by Save, and every vector must share the dimension of
// the first one saved. Ranking is recomputed over the full collection so ties
// keep insertion order like the SQLite backend.
type ChromemStore struct {
	mu     sync.RWMutex
	db     *chromem.DB
	col    *chromem.Collection
	nextID int64
	dim    int
	logger *zap.Logger
}

// NewChromemStore creates an empty in-memory ChromemStore.
func NewChromemStore(logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ChromemStore{db: chromem.NewDB(), logger: logger}
	if err := s.createCollection(); err != nil {
		return nil, err
	}

	logger.Info("ChromemStore initialized", zap.String("collection", chromemCollection))
	RecordsStored.Set(0)
	return s, nil
}

func (s *ChromemStore) createCollection() error {
	// Vectors always arrive precomputed; the embedding func is never called.
	noEmbed := func(context.Context, string) ([]float32, error) {
		return nil, fmt.Errorf("%w: chromem store requires precomputed vectors", ErrInvalidVector)
	}
	col, err := s.db.GetOrCreateCollection(chromemCollection, nil, noEmbed)
	if err != nil {
		return fmt.Errorf("%w: creating collection: %v", ErrStoreIO, err)
	}
	s.col = col
	return nil
}

// Save implements Store.
func (s *ChromemStore) Save(ctx context.Context, fileName string, chunkIndex int, text string, vector []float32) (int64, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Save")
	defer span.End()

	span.SetAttributes(
		attribute.String("file_name", fileName),
		attribute.Int("chunk_index", chunkIndex),
		attribute.Int("dimension", len(vector)),
	)

	if err := checkStorable(vector); err != nil {
		failSpan(span, err)
		SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim != 0 && len(vector) != s.dim {
		err := fmt.Errorf("%w: store holds %d-dimensional vectors, got %d", ErrDimensionMismatch, s.dim, len(vector))
		failSpan(span, err)
		SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	id := s.nextID + 1
	doc := chromem.Document{
		ID: strconv.FormatInt(id, 10),
		Metadata: map[string]string{
			metaFileName:   fileName,
			metaChunkIndex: strconv.Itoa(chunkIndex),
		},
		// chromem normalizes in place.
		Embedding: append([]float32(nil), vector...),
		Content:   text,
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		err = fmt.Errorf("%w: adding document: %v", ErrStoreIO, err)
		failSpan(span, err)
		SavesTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	s.nextID = id
	s.dim = len(vector)
	SavesTotal.WithLabelValues("success").Inc()
	RecordsStored.Inc()
	span.SetAttributes(attribute.Int64("id", id))
	span.SetStatus(codes.Ok, "success")
	return id, nil
}

func checkStorable(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidVector)
	}
	var norm float64
	for i, f := range v {
		x := float64(f)
		if !finite(x) {
			return fmt.Errorf("%w: element %d", ErrNonFiniteVector, i)
		}
		norm += x * x
	}
	if norm == 0 {
		return fmt.Errorf("%w: zero-magnitude vector cannot be normalized", ErrInvalidVector)
	}
	return nil
}

// TopK implements Store.
func (s *ChromemStore) TopK(ctx context.Context, query []float32, k int) ([]Result, error) {
	ctx, span := chromemTracer.Start(ctx, "vectorstore.TopK")
	defer span.End()

	start := time.Now()
	defer func() { TopKDuration.Observe(time.Since(start).Seconds()) }()

	span.SetAttributes(attribute.Int("k", k), attribute.Int("dimension", len(query)))

	if k <= 0 {
		return []Result{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.col.Count()
	if n == 0 {
		return []Result{}, nil
	}
	if len(query) != s.dim {
		err := fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(query), s.dim)
		failSpan(span, err)
		return nil, err
	}

	var norm float64
	for i, f := range query {
		x := float64(f)
		if !finite(x) {
			err := fmt.Errorf("%w: element %d", ErrNonFiniteVector, i)
			failSpan(span, err)
			return nil, err
		}
		norm += x * x
	}

	var (
		results []Result
		err     error
	)
	if norm == 0 {
		results, err = s.zeroScores(ctx)
	} else {
		results, err = s.query(ctx, query, n)
	}
	if err != nil {
		failSpan(span, err)
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}

	span.SetAttributes(
		attribute.Int("scanned", n),
		attribute.Int("results_count", len(results)),
	)
	span.SetStatus(codes.Ok, "success")
	return results, nil
}

func (s *ChromemStore) query(ctx context.Context, query []float32, n int) ([]Result, error) {
	found, err := s.col.QueryEmbedding(ctx, append([]float32(nil), query...), n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", ErrStoreIO, err)
	}

	results := make([]Result, 0, len(found))
	for _, r := range found {
		rec, err := toRecord(r.ID, r.Metadata, r.Content, r.Embedding)
		if err != nil {
			return nil, err
		}
		score := math.Max(-1, math.Min(1, float64(r.Similarity)))
		results = append(results, Result{Record: rec, Score: float32(score)})
	}
	return results, nil
}

// zeroScores handles a zero-magnitude query, which scores 0 against every
// record. chromem cannot normalize it, so records are fetched by ID.
func (s *ChromemStore) zeroScores(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, s.nextID)
	for id := int64(1); id <= s.nextID; id++ {
		doc, err := s.col.GetByID(ctx, strconv.FormatInt(id, 10))
		if err != nil {
			// Deleted by Reset.
			continue
		}
		rec, err := toRecord(doc.ID, doc.Metadata, doc.Content, doc.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Record: rec})
	}
	return results, nil
}

func toRecord(id string, meta map[string]string, content string, vector []float32) (Record, error) {
	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: document id %q: %v", ErrStoreIO, id, err)
	}
	idx, err := strconv.Atoi(meta[metaChunkIndex])
	if err != nil {
		return Record{}, fmt.Errorf("%w: chunk index of %q: %v", ErrStoreIO, id, err)
	}
	return Record{
		ID:         seq,
		FileName:   meta[metaFileName],
		ChunkIndex: idx,
		Text:       content,
		Vector:     vector,
	}, nil
}

// Count implements Store.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.col.Count(), nil
}

// Reset implements Store. IDs keep increasing across resets.
func (s *ChromemStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(chromemCollection); err != nil {
		return fmt.Errorf("%w: deleting collection: %v", ErrStoreIO, err)
	}
	if err := s.createCollection(); err != nil {
		return err
	}
	s.dim = 0
	RecordsStored.Set(0)
	s.logger.Debug("vector store reset")
	return nil
}

// Close implements Store.
func (s *ChromemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Reset(); err != nil {
		return fmt.Errorf("%w: resetting database: %v", ErrStoreIO, err)
	}
	return nil
}
