package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/ftx-attest/internal/anna"
	"github.com/xela07ax/ftx-attest/internal/domain"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestAnnaFactory_Submit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"attestation_id": "att-7"})
	}))
	defer server.Close()

	factory := NewAnnaFactory(server.URL, server.Client())
	att, err := factory(testKey, "amoy")
	require.NoError(t, err)

	res, err := att.Submit(context.Background(), domain.Submission{Content: "{}", Category: domain.AttestationCategory})
	require.NoError(t, err)
	assert.Equal(t, "att-7", res.AttestationID)
	assert.Empty(t, res.TxHash)
}

func TestAnnaFactory_BadKey(t *testing.T) {
	_, err := NewAnnaFactory("", nil)("", "amoy")
	assert.ErrorIs(t, err, anna.ErrMissingPrivateKey)
}

func TestAnnaAdapter_Throttle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	att, err := NewAnnaFactory(server.URL, server.Client())(testKey, "amoy")
	require.NoError(t, err)

	_, err = att.Submit(context.Background(), domain.Submission{Content: "{}"})
	var tErr *ThrottleError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 3*time.Second, tErr.RetryAfter)

	var apiErr *anna.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestMockAttestor(t *testing.T) {
	m := &MockAttestor{}
	res, err := m.Submit(context.Background(), domain.Submission{Content: "{}"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.AttestationID, "mock-"))
	assert.Empty(t, res.TxHash)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &MockAttestor{MinLatency: time.Second}
	_, err = slow.Submit(ctx, domain.Submission{Content: "{}"})
	assert.ErrorIs(t, err, context.Canceled)
}
