package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlcoop/contribmeter/internal/domain"
)

// ErrTrainerUnavailable indicates the training service could not be reached.
var ErrTrainerUnavailable = errors.New("training service unavailable")

// ErrTrainerRejected indicates the training service rejected the request,
// typically because the coalition's combined dataset was empty or training
// did not converge.
var ErrTrainerRejected = errors.New("training service rejected request")

const defaultTrainTimeout = 2 * time.Hour

// HTTPTrainer bridges the Trainer interface to an external training
// service over HTTP. The service owns the model architecture, the dataset
// resolution behind each node's DatasetRef, and the test-set scoring; this
// adapter only moves the coalition description across the wire.
type HTTPTrainer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTrainer creates a trainer client for the given service endpoint.
// A nil client gets a default with a training-scale timeout; one full
// train/evaluate cycle can take hours.
func NewHTTPTrainer(endpoint string, client *http.Client) *HTTPTrainer {
	if client == nil {
		client = &http.Client{Timeout: defaultTrainTimeout}
	}
	return &HTTPTrainer{endpoint: endpoint, client: client}
}

// trainRequest is the wire format the training service consumes.
type trainRequest struct {
	Datasets []string  `json:"datasets"`
	Weights  []float64 `json:"weights"`
	Epochs   int       `json:"epochs"`
}

// trainResponse is the wire format the training service produces.
type trainResponse struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

// TrainAndScore posts the coalition's dataset handles and weights to the
// training service and returns the reported test score.
func (t *HTTPTrainer) TrainAndScore(ctx context.Context, nodes []domain.Node, epochs int) (float64, error) {
	req := trainRequest{
		Datasets: make([]string, len(nodes)),
		Weights:  make([]float64, len(nodes)),
		Epochs:   epochs,
	}
	for i, node := range nodes {
		req.Datasets[i] = node.DatasetRef
		req.Weights[i] = node.Weight
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal train request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/train", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create train request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTrainerUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read train response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Server-side faults and throttling are transient; only client-class
		// statuses mean the service looked at the request and refused it.
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return 0, fmt.Errorf("%w: status %d: %s", ErrTrainerUnavailable, resp.StatusCode, string(respBody))
		}
		return 0, fmt.Errorf("%w: status %d: %s", ErrTrainerRejected, resp.StatusCode, string(respBody))
	}

	var result trainResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return 0, fmt.Errorf("invalid train response: %w", err)
	}
	if result.Error != "" {
		return 0, fmt.Errorf("%w: %s", ErrTrainerRejected, result.Error)
	}

	return result.Score, nil
}
