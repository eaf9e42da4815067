// Package anna — HTTP-клиент сервиса аттестаций ANNA Protocol.
//
// Сервис для нас черный ящик: подпись, отправка в сеть и хранение происходят на его стороне.
// Клиент знает только форму запроса/ответа и аутентифицируется короткоживущим JWT,
// подписанным ключом верификатора.
package anna

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

const DefaultBaseURL = "https://api.annaprotocol.com"

var (
	ErrMissingPrivateKey = errors.New("anna: private key is required")
	ErrInvalidPrivateKey = errors.New("anna: private key must be 32 bytes of hex")
	ErrUnknownNetwork    = errors.New("anna: unknown network")
)

// Network — сеть, в которую ANNA якорит аттестации.
type Network struct {
	Name    string
	ChainID int64
}

var networks = map[string]Network{
	"amoy":    {Name: "amoy", ChainID: 80002},
	"polygon": {Name: "polygon", ChainID: 137},
}

// SubmitRequest — аргументы submit_attestation.
type SubmitRequest struct {
	Content   string
	Reasoning string
	Category  string
	Metadata  string
}

type Attestation struct {
	AttestationID string `json:"attestation_id"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// APIError — не-2xx ответ сервиса.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // Заполняется для 429, если сервис прислал Retry-After
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anna: status=%d message=%s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	network    Network
	key        []byte
	verifierID string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient проверяет ключ и сеть. Ключ принимается с префиксом 0x или без.
func NewClient(privateKey, network string, opts ...Option) (*Client, error) {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey == "" {
		return nil, ErrMissingPrivateKey
	}
	key, err := hex.DecodeString(strings.TrimPrefix(privateKey, "0x"))
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidPrivateKey
	}

	n, ok := networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, network)
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		network:    n,
		key:        key,
		verifierID: fingerprint(key),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// VerifierID — отпечаток ключа верификатора (последние 20 байт Keccak-256).
func (c *Client) VerifierID() string { return c.verifierID }

func (c *Client) Network() Network { return c.network }

type submitBody struct {
	Network     string `json:"network"`
	ChainID     int64  `json:"chain_id"`
	Content     string `json:"content"`
	ContentHash string `json:"content_hash"`
	Reasoning   string `json:"reasoning"`
	Category    string `json:"category"`
	Metadata    string `json:"metadata"`
}

// SubmitAttestation отправляет аттестацию и ждет ответа сервиса.
func (c *Client) SubmitAttestation(ctx context.Context, req SubmitRequest) (*Attestation, error) {
	contentHash := ContentHash(req.Content)
	body, err := json.Marshal(submitBody{
		Network:     c.network.Name,
		ChainID:     c.network.ChainID,
		Content:     req.Content,
		ContentHash: contentHash,
		Reasoning:   req.Reasoning,
		Category:    req.Category,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("anna: marshal request: %w", err)
	}

	token, err := c.signToken(contentHash)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attestations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anna: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anna: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("anna: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp, raw)
	}

	var att Attestation
	if err := json.Unmarshal(raw, &att); err != nil {
		return nil, fmt.Errorf("anna: decode response: %w", err)
	}
	if att.AttestationID == "" {
		return nil, errors.New("anna: response missing attestation_id")
	}
	return &att, nil
}

type verifierClaims struct {
	ContentHash string `json:"content_hash"`
	Network     string `json:"network"`
	jwt.RegisteredClaims
}

func (c *Client) signToken(contentHash string) (string, error) {
	now := c.now()
	claims := verifierClaims{
		ContentHash: contentHash,
		Network:     c.network.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.verifierID,
			Subject:   "attestation",
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("anna: sign token: %w", err)
	}
	return token, nil
}

func newAPIError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != "":
			apiErr.Message = body.Error
		case body.Message != "":
			apiErr.Message = body.Message
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

// ContentHash — Keccak-256 контента в hex с префиксом 0x.
func ContentHash(content string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(content))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func fingerprint(key []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(key)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
