package connectors

import (
	"context"
	"errors"
	"net/http"

	"github.com/xela07ax/ftx-attest/internal/anna"
	"github.com/xela07ax/ftx-attest/internal/domain"
)

type AnnaAdapter struct {
	client *anna.Client
}

func NewAnnaAdapter(client *anna.Client) *AnnaAdapter {
	return &AnnaAdapter{client: client}
}

// NewAnnaFactory возвращает фабрику боевых клиентов ANNA.
// httpClient общий для всех запросов, сам anna.Client создается заново.
func NewAnnaFactory(baseURL string, httpClient *http.Client) Factory {
	return func(privateKey, network string) (Attestor, error) {
		c, err := anna.NewClient(privateKey, network, anna.WithBaseURL(baseURL), anna.WithHTTPClient(httpClient))
		if err != nil {
			return nil, err
		}
		return NewAnnaAdapter(c), nil
	}
}

// Submit реализует интерфейс Attestor
func (a *AnnaAdapter) Submit(ctx context.Context, sub domain.Submission) (*domain.Attestation, error) {
	att, err := a.client.SubmitAttestation(ctx, anna.SubmitRequest{
		Content:   sub.Content,
		Reasoning: sub.Reasoning,
		Category:  sub.Category,
		Metadata:  sub.Metadata,
	})
	if err != nil {
		// 429 превращаем в ThrottleError, чтобы ReliabilityWrapper выдержал паузу из Retry-After
		var apiErr *anna.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return nil, &ThrottleError{RetryAfter: apiErr.RetryAfter, Cause: err}
		}
		return nil, err
	}

	return &domain.Attestation{AttestationID: att.AttestationID, TxHash: att.TxHash}, nil
}
