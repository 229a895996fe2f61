package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildSpansInheritTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "run", "trace-1")
	_, build := StartChildSpan(ctx, "index.build")
	build.SetAttr("files", 2)
	build.End()
	root.End()

	require.Len(t, root.Children, 1)
	assert.Equal(t, "trace-1", build.TraceID)
	assert.Same(t, root, SpanFromContext(ctx))

	first := build.Duration
	build.End()
	assert.Equal(t, first, build.Duration)
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	assert.Empty(t, span.TraceID)
	assert.Same(t, span, SpanFromContext(ctx))
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestLogWritesTree(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, root := StartSpan(context.Background(), "run", "trace-2")
	_, child := StartChildSpan(ctx, "queries")
	child.SetAttr("queries", 7)
	child.End()
	root.End()
	root.Log(logger)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "span=run")
	assert.Contains(t, lines[0], "depth=0")
	assert.Contains(t, lines[1], "span=queries")
	assert.Contains(t, lines[1], "queries=7")
	assert.Contains(t, lines[1], "trace_id=trace-2")
}
