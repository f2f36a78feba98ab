package importer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Loader reads a snapshot from a path or object key.
type Loader interface {
	Load(ctx context.Context, path string) (*Snapshot, error)
}

// fileLoader implements Loader for snapshots on the local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based snapshot loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "snapshot-loader").Logger(),
	}
}

// Load reads a plain or gzipped snapshot file.
func (l *fileLoader) Load(ctx context.Context, filePath string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.logger.Info().Str("file", filePath).Msg("loading snapshot file")

	file, err := os.Open(filePath)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to open snapshot file")
		return nil, fmt.Errorf("failed to open snapshot file %s: %w", filePath, err)
	}
	defer file.Close()

	snap, err := Decode(file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", filePath).Msg("failed to read snapshot file")
		return nil, fmt.Errorf("snapshot file %s: %w", filePath, err)
	}

	l.logger.Info().
		Str("file", filePath).
		Int("admins", len(snap.Admins)).
		Int("lists", len(snap.Lists)).
		Int("items", len(snap.Items)).
		Msg("snapshot file loaded successfully")

	return snap, nil
}

// LoadAll loads every path concurrently and returns the snapshots in path
// order. The first failure, in path order, is returned.
func LoadAll(ctx context.Context, loader Loader, paths []string, logger zerolog.Logger) ([]*Snapshot, error) {
	type loadResult struct {
		index int
		snap  *Snapshot
		err   error
	}

	resultChan := make(chan loadResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			snap, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, snap: snap, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(paths))
	for result := range resultChan {
		results[result.index] = result
	}

	snaps := make([]*Snapshot, 0, len(paths))
	for i, result := range results {
		if result.err != nil {
			logger.Error().Err(result.err).Str("path", paths[i]).Msg("failed to load snapshot")
			return nil, fmt.Errorf("failed to load snapshot %s: %w", paths[i], result.err)
		}
		snaps = append(snaps, result.snap)
	}
	return snaps, nil
}
