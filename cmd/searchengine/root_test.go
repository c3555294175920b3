package main

import (
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/inverted-search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_FlagResolution(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantIndex   string
		wantResults string
		wantThreads int
	}{
		{name: "nothing", args: nil},
		{name: "default paths", args: []string{"--index", "--results"}, wantIndex: "index.json", wantResults: "results.json"},
		{name: "explicit paths", args: []string{"--index=out/i.json", "--results=r.json"}, wantIndex: "out/i.json", wantResults: "r.json"},
		{name: "threads without value", args: []string{"--threads"}, wantThreads: config.DefaultWorkers},
		{name: "threads with value", args: []string{"--threads=8"}, wantThreads: 8},
		{name: "invalid threads", args: []string{"--threads=abc"}, wantThreads: config.DefaultWorkers},
		{name: "zero threads", args: []string{"--threads=0"}, wantThreads: config.DefaultWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			var f flags
			f.index, _ = cmd.Flags().GetString("index")
			f.results, _ = cmd.Flags().GetString("results")
			f.threads, _ = cmd.Flags().GetString("threads")
			opts := f.options(config.Default(), cmd)

			assert.Equal(t, tt.wantIndex, opts.IndexPath)
			assert.Equal(t, tt.wantResults, opts.ResultsPath)
			assert.Equal(t, "", opts.CountsPath)
			assert.Equal(t, tt.wantThreads, opts.Threads)
		})
	}
}

func TestRootCmd_MissingConfigIsInputError(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitInvalidInput, apperrors.ExitCode(err))
}

func TestRootCmd_RejectsPositionalArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"stray"})
	assert.Error(t, cmd.Execute())
}
