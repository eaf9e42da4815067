package connectors

import (
	"context"

	"github.com/xela07ax/ftx-attest/internal/domain"
)

// Attestor — порт к внешнему сервису аттестаций.
type Attestor interface {
	Submit(ctx context.Context, sub domain.Submission) (*domain.Attestation, error)
}

// Factory создает клиента под конкретный ключ и сеть.
// Вызывается на каждый запрос: клиент не переиспользуется между запросами.
type Factory func(privateKey, network string) (Attestor, error)
