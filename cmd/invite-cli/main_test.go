package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/career-assistant/internal/api/storage"
	"github.com/cuongbtq/career-assistant/internal/storetest"
)

func run(t *testing.T, store *storage.Storage, args ...string) (string, error) {
	t.Helper()

	open := func(context.Context, string) (*storage.Storage, func(), error) {
		return store, func() {}, nil
	}

	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateAndList(t *testing.T) {
	store := storage.NewStorage(storetest.New(t))

	out, err := run(t, store, "generate", "--count", "3")
	require.NoError(t, err)
	codes := strings.Fields(out)
	require.Len(t, codes, 3)
	for _, code := range codes {
		assert.NotEmpty(t, code)
	}

	out, err = run(t, store, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "CODE"))
	for _, code := range codes {
		assert.Contains(t, out, code)
	}

	out, err = run(t, store, "list", "--unused-only")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestGenerate_InvalidCount(t *testing.T) {
	store := storage.NewStorage(storetest.New(t))

	for _, count := range []string{"0", "51", "-2"} {
		_, err := run(t, store, "generate", "--count", count)
		assert.Error(t, err, count)
	}

	out, err := run(t, store, "list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}
