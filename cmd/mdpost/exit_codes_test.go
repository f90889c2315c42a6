package main

// Notes:
// - exitCodeFor: we test the sentinels of the library, config and CLI, plus
//   wrapped errors to verify the errors.Is chain.
// - A failed document wins over any I/O cause it wraps.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	mdpost "github.com/alnah/go-mdpost"
	"github.com/alnah/go-mdpost/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		// Success
		{"nil error", nil, ExitSuccess},

		// Content errors (exit 4)
		{"documents failed", ErrDocumentsFailed, ExitContent},
		{"wrapped documents failed", fmt.Errorf("%w: 1 of 2", ErrDocumentsFailed), ExitContent},
		{"documents failed over io", fmt.Errorf("%w: %w", ErrDocumentsFailed, os.ErrNotExist), ExitContent},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read source", ErrReadSource, ExitIO},
		{"write output", ErrWriteOutput, ExitIO},
		{"wrapped read", fmt.Errorf("%w: posts/a.md: %w", ErrReadSource, os.ErrNotExist), ExitIO},

		// Usage/config/validation errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"empty config name", config.ErrEmptyConfigName, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"unknown theme", mdpost.ErrUnknownTheme, ExitUsage},
		{"stage order", mdpost.ErrStageOrder, ExitUsage},
		{"invalid source path", ErrInvalidSourcePath, ExitUsage},
		{"invalid worker count", ErrInvalidWorkerCount, ExitUsage},
		{"invalid timeout", ErrInvalidTimeout, ExitUsage},
		{"no input", ErrNoInput, ExitUsage},
		{"usage", ErrUsage, ExitUsage},
		{"wrapped theme", fmt.Errorf("chain: %w", mdpost.ErrUnknownTheme), ExitUsage},

		// General errors (exit 1)
		{"unknown error", errors.New("boom"), ExitGeneral},
		{"canceled", context.Canceled, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 {
		t.Errorf("ExitSuccess = %d, want 0", ExitSuccess)
	}
	if ExitGeneral != 1 {
		t.Errorf("ExitGeneral = %d, want 1", ExitGeneral)
	}
	if ExitUsage != 2 {
		t.Errorf("ExitUsage = %d, want 2", ExitUsage)
	}
	for _, code := range []int{ExitIO, ExitContent} {
		if code >= 126 {
			t.Errorf("custom exit code %d must be below 126", code)
		}
	}
}
