package doris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"doris-rag/internal/retry"
)

// loadResult is the subset of the Stream Load response we inspect.
type loadResult struct {
	TxnID             int64  `json:"TxnId"`
	Label             string `json:"Label"`
	Status            string `json:"Status"`
	ExistingJobStatus string `json:"ExistingJobStatus"`
	Message           string `json:"Message"`
	NumberLoadedRows  int64  `json:"NumberLoadedRows"`
	ErrorURL          string `json:"ErrorURL"`
}

func (r loadResult) ok() bool {
	switch r.Status {
	case "Success", "Publish Timeout":
		return true
	case "Label Already Exists":
		return r.ExistingJobStatus == "FINISHED"
	}
	return false
}

// streamLoad sends one JSON-array batch. The label is fixed across retries so a
// batch that was committed before a lost response is not loaded twice.
func (s *Storage) streamLoad(ctx context.Context, rows []row) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding stream load batch: %w", err)
	}
	label := "doris_rag_" + uuid.NewString()

	var result loadResult
	err = retry.Do(ctx, retry.Policy{MaxRetries: 3}, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.loader, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.SetBasicAuth(s.cfg.User, s.cfg.Password)
		req.Header.Set("Expect", "100-continue")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("format", "json")
		req.Header.Set("strip_outer_array", "true")
		req.Header.Set("label", label)

		resp, err := s.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.Transient(err, 0)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.Transient(err, 0)
		}
		if resp.StatusCode >= 500 {
			return retry.Transient(fmt.Errorf("stream load: %s", resp.Status), 0)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stream load: %s: %s", resp.Status, bytes.TrimSpace(body))
		}
		result = loadResult{}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decoding stream load response: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !result.ok() {
		return fmt.Errorf("stream load %s: status %q: %s (%s)", label, result.Status, result.Message, result.ErrorURL)
	}
	s.logger.Debug("stream load finished",
		zap.String("label", label),
		zap.Int("rows", len(rows)),
		zap.Int64("loaded", result.NumberLoadedRows))
	return nil
}
