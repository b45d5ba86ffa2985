package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesRotatedLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tesmerge.log")
	logger := New(Options{Verbosity: Verbose, LogPath: path})
	defer logger.Sync()

	logger.Info("merge started")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestLevelForVerbosity(t *testing.T) {
	cases := map[Verbosity]bool{
		Quiet:   true,
		Normal:  true,
		Verbose: true,
	}
	for v := range cases {
		if lvl := levelFor(v); lvl.String() == "" {
			t.Fatalf("unexpected empty level for verbosity %d", v)
		}
	}
}
