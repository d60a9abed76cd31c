package commands

import (
	"fmt"
	"io"

	"github.com/physmem-tools/physmem-go/pkg/log"
)

// RunFilter copies the events matching filter into a new trace file and
// returns how many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	if output == "" {
		return 0, fmt.Errorf("output file is required")
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output trace: %w", err)
	}

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Close()
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
		count++
	}

	if err := logger.Close(); err != nil {
		return count, fmt.Errorf("failed to close output trace: %w", err)
	}
	return count, nil
}
