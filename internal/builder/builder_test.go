package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/inverted-search/internal/workqueue"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBuildFile_PositionsContinueAcrossLines(t *testing.T) {
	path := write(t, filepath.Join(t.TempDir(), "a.txt"), "The running\n\nfox RUNS, 123 ran!\nrun")
	idx := index.New()

	require.NoError(t, BuildFile(path, idx))

	// the, running, fox, runs, ran, run
	assert.Equal(t, []int{2, 4, 6}, idx.Positions("run", path))
	assert.Equal(t, []int{5}, idx.Positions("ran", path))
	assert.Equal(t, []int{1}, idx.Positions("the", path))
	assert.Equal(t, 6, idx.WordCount(path))
}

func TestBuildFile_Unreadable(t *testing.T) {
	err := BuildFile(filepath.Join(t.TempDir(), "nope.txt"), index.New())
	assert.ErrorIs(t, err, apperrors.ErrUnreadablePath)
}

func TestBuild_DirectoryAndSingleFile(t *testing.T) {
	root := t.TempDir()
	a := write(t, filepath.Join(root, "a.txt"), "apple banana")
	b := write(t, filepath.Join(root, "sub", "b.TEXT"), "banana cherry")
	write(t, filepath.Join(root, "skip.md"), "durian")

	idx := index.New()
	require.NoError(t, Build(root, idx))
	assert.Equal(t, []string{a, b}, idx.WordLocations("banana"))
	assert.False(t, idx.HasWord("durian"))

	md := filepath.Join(root, "skip.md")
	single := index.New()
	require.NoError(t, Build(md, single))
	assert.True(t, single.HasWord("durian"))
}

func TestBuild_MissingPath(t *testing.T) {
	err := Build(filepath.Join(t.TempDir(), "missing"), index.New())
	assert.ErrorIs(t, err, apperrors.ErrUnreadablePath)
}

func corpus(t *testing.T, files int) string {
	t.Helper()
	root := t.TempDir()
	words := strings.Fields("the quick brown fox jumps over the lazy dog while running rivers rush past ancient stones")
	for i := 0; i < files; i++ {
		var sb strings.Builder
		for j := 0; j < 40; j++ {
			sb.WriteString(words[(i*7+j*3)%len(words)])
			if j%9 == 8 {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		write(t, filepath.Join(root, fmt.Sprintf("dir%d", i%5), fmt.Sprintf("f%03d.txt", i)), sb.String())
	}
	return root
}

func TestConcurrent_MatchesSequential(t *testing.T) {
	root := corpus(t, 100)

	sequential := index.New()
	require.NoError(t, Build(root, sequential))

	queue := workqueue.New(4)
	defer queue.Shutdown()
	shared := index.NewThreadSafe()
	require.NoError(t, NewConcurrent(shared, queue).Build(root))

	assert.Equal(t, sequential.Snapshot(), shared.Snapshot())
	assert.Equal(t, sequential.WordCounts(), shared.WordCounts())
}

func TestConcurrent_FailedFileDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	good := write(t, filepath.Join(root, "good.txt"), "hello world")
	bad := filepath.Join(root, "bad.txt")
	write(t, bad, "secret")
	require.NoError(t, os.Chmod(bad, 0o000))
	if f, err := os.Open(bad); err == nil {
		f.Close()
		t.Skip("running with permissions that ignore file modes")
	}

	var mu sync.Mutex
	var failures []error
	queue := workqueue.New(2, workqueue.WithFailureSink(func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
	}))
	defer queue.Shutdown()

	shared := index.NewThreadSafe()
	require.NoError(t, NewConcurrent(shared, queue).Build(root))

	assert.True(t, shared.HasLocation("hello", good))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0], apperrors.ErrUnreadablePath))
}

func TestConcurrent_SubmitAfterShutdown(t *testing.T) {
	root := corpus(t, 3)
	queue := workqueue.New(1)
	queue.Shutdown()

	err := NewConcurrent(index.NewThreadSafe(), queue).Build(root)
	assert.ErrorIs(t, err, apperrors.ErrPoolShutdown)
}
