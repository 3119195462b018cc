package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	md2pdf "github.com/jmaupetit/md2pdf"
	"github.com/jmaupetit/md2pdf/internal/config"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"unknown", errors.New("boom"), ExitGeneral},
		{"canceled", context.Canceled, ExitGeneral},
		{"browser", fmt.Errorf("wrap: %w", md2pdf.ErrBrowserConnect), ExitRender},
		{"element not found", md2pdf.ErrElementNotFound, ExitRender},
		{"browser wrapping io", fmt.Errorf("%w: %w", md2pdf.ErrPageLoad, os.ErrNotExist), ExitRender},
		{"missing file", fmt.Errorf("open: %w", os.ErrNotExist), ExitIO},
		{"write", ErrWritePDF, ExitIO},
		{"fragment", ErrReadFragment, ExitIO},
		{"stylesheet", md2pdf.ErrStylesheet, ExitIO},
		{"config", fmt.Errorf("loading config: %w", config.ErrConfigParse), ExitUsage},
		{"side margin", md2pdf.ErrInvalidSideMargin, ExitUsage},
		{"template", md2pdf.ErrTemplateRender, ExitUsage},
		{"var", ErrInvalidVar, ExitUsage},
		{"output with many inputs", ErrOutputWithMultipleInputs, ExitUsage},
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
