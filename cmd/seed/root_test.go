package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/repository/memory"
	"github.com/utafrali/catalog-search/internal/seed"
)

func memoryOpener(store *memory.Store, closed *bool) seederOpener {
	return func(_ context.Context, _ *config.Config, log *slog.Logger) (*seed.Seeder, func(), error) {
		return seed.New(store.Products(), store.Brands(), store.Categories(), log), func() { *closed = true }, nil
	}
}

func execute(t *testing.T, open seederOpener, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	buf := new(bytes.Buffer)
	cmd := newRootCmd(open)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd(nil)

	for name, def := range map[string]string{"count": "10000", "batch": "1000", "seed": "42"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestRootCmd_SeedsStore(t *testing.T) {
	store := memory.New()
	var closed bool

	out, err := execute(t, memoryOpener(store, &closed), "--count", "25", "--batch", "10", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully created 25 products (10 categories, 10 brands)")
	assert.True(t, closed)

	categories, err := store.Categories().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 10)
}

func TestRootCmd_RejectsBadBatch(t *testing.T) {
	var closed bool
	_, err := execute(t, memoryOpener(memory.New(), &closed), "--batch", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch must be positive")
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, nil, "extra")
	require.Error(t, err)
}

func TestRootCmd_OpenFailure(t *testing.T) {
	failing := func(context.Context, *config.Config, *slog.Logger) (*seed.Seeder, func(), error) {
		return nil, nil, errors.New("connect to postgres: refused")
	}

	_, err := execute(t, failing, "--count", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to postgres")
}
