package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docmind/internal/config"
	"github.com/fyrsmithlabs/docmind/internal/rag"
	"github.com/fyrsmithlabs/docmind/internal/vectorstore"
)

type constEmbedder struct{}

func (constEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func TestNewRegistry_Close(t *testing.T) {
	var order []int
	reg := NewRegistry(Options{Closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return errors.New("boom") },
	}})

	assert.Nil(t, reg.RAG())
	assert.Nil(t, reg.Library())
	assert.Nil(t, reg.Store())

	assert.ErrorContains(t, reg.Close(), "boom")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, reg.Close())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.Path = vectorstore.InMemoryPath

	reg, err := Open(ctx, cfg, nil,
		WithEmbedder(constEmbedder{}),
		WithUploadDir(t.TempDir()),
		WithObserver(func(string, rag.State, rag.State) {}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	require.NotNil(t, reg.RAG())
	require.NotNil(t, reg.Library())
	require.NotNil(t, reg.Store())

	count, err := reg.Store().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpen_InvalidStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "qdrant"

	_, err := Open(context.Background(), cfg, nil, WithEmbedder(constEmbedder{}))
	assert.ErrorIs(t, err, vectorstore.ErrInvalidConfig)
}
