package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/vxgraph/internal/cli"
	"github.com/specialistvlad/vxgraph/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"run", "--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "run() should return an ExitError")
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}

func TestRun_InvalidGraph(t *testing.T) {
	t.Parallel()

	// Unclosed block.
	filePath := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte("node \"a\" {\n  kernel = \"x\"\n"), 0600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, []string{"run", filePath})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "run() should return an ExitError")
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, exitErr.Message, "failed to load graph file")
}

func TestRun_Demo(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}
	err := run(context.Background(), out, []string{"run"})

	require.NoError(t, err)
	require.Contains(t, out.String(), "Processed graph successfully.")
}
