package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/peerdex/internal/db"
)

// IndexExists reports whether the index is present.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Exists(
		[]string{name},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, &db.Error{Op: db.OpIndexExists, Err: err}
	}
	defer drain(res.Body)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, decodeError(db.OpIndexExists, res)
	}
}

// CreateIndex creates an index with the given mapping.
// Returns db.ErrIndexExists if the index is already present.
func (s *Store) CreateIndex(ctx context.Context, m *db.IndexMapping) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("validate mapping: %w", err)
	}
	body, err := m.Body()
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Create(
		m.Name,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return decodeError(db.OpCreateIndex, res)
	}
	return nil
}

// DeleteIndex removes an index. Returns db.ErrIndexNotFound if it does not exist.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Delete(
		[]string{name},
		s.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return &db.Error{Op: db.OpDeleteIndex, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return decodeError(db.OpDeleteIndex, res)
	}
	return nil
}

// IndexStats returns the raw indices stats document for the index.
// Transient failures are retried up to the configured number of attempts;
// a missing index is returned immediately as db.ErrIndexNotFound.
func (s *Store) IndexStats(ctx context.Context, name string) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt < s.statusAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &db.Error{Op: db.OpIndexStats, Err: err}
		}
		stats, err := s.indexStats(ctx, name)
		if err == nil {
			return stats, nil
		}
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Store) indexStats(ctx context.Context, name string) (json.RawMessage, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Indices.Stats(
		s.client.Indices.Stats.WithContext(ctx),
		s.client.Indices.Stats.WithIndex(name),
	)
	if err != nil {
		return nil, &db.Error{Op: db.OpIndexStats, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return nil, decodeError(db.OpIndexStats, res)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &db.Error{Op: db.OpIndexStats, Err: fmt.Errorf("read response: %w", err)}
	}
	if !json.Valid(raw) {
		return nil, &db.Error{Op: db.OpIndexStats, Err: errors.New("response is not valid JSON")}
	}
	return json.RawMessage(raw), nil
}
