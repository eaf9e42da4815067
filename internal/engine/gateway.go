package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/ftx-attest/internal/anna"
	"github.com/xela07ax/ftx-attest/internal/audit"
	"github.com/xela07ax/ftx-attest/internal/connectors"
	"github.com/xela07ax/ftx-attest/internal/domain"
)

// AttestationNetwork — сеть, под которую создается клиент ANNA.
const AttestationNetwork = "amoy"

// ScenarioGate сообщает, выключен ли сценарий оператором.
type ScenarioGate interface {
	IsDisabled(scenario string) bool
}

// AttestationExecutor выполняет вызов клиента (в проде — через ReliabilityWrapper).
type AttestationExecutor interface {
	Submit(ctx context.Context, client connectors.Attestor, sub domain.Submission) (*domain.Attestation, error)
}

type EndpointConfig struct {
	// PrivateKey передается в конструктор клиента как есть, пустое значение — ошибка запроса, а не старта
	PrivateKey   string
	LegacyStatus bool
	MaxBodyBytes int64
}

// ScenarioEndpoint — единственный эндпоинт сервиса: сценарий -> аттестация ANNA.
type ScenarioEndpoint struct {
	cfg         EndpointConfig
	newAttestor connectors.Factory
	executor    AttestationExecutor
	gate        ScenarioGate
	auditor     audit.Auditor
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewScenarioEndpoint(
	cfg EndpointConfig,
	factory connectors.Factory,
	exec AttestationExecutor,
	gate ScenarioGate,
	auditor audit.Auditor,
	metrics *Metrics,
	logger *zap.Logger,
) *ScenarioEndpoint {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if auditor == nil {
		auditor = nopAuditor{}
	}
	return &ScenarioEndpoint{
		cfg:         cfg,
		newAttestor: factory,
		executor:    exec,
		gate:        gate,
		auditor:     auditor,
		metrics:     metrics,
		logger:      logger.Named("endpoint"),
		now:         time.Now,
	}
}

// SetClock подменяет источник времени для timestamp в контенте.
func (e *ScenarioEndpoint) SetClock(now func() time.Time) {
	e.now = now
}

// ProcessScenario разбирает тело запроса, создает аттестацию и собирает ответ.
// Любая ошибка оборачивает одну из domain.Err*.
func (e *ScenarioEndpoint) ProcessScenario(ctx context.Context, body io.Reader) (*domain.SubmissionResult, error) {
	start := time.Now()
	event := audit.AttestationEvent{
		ID:      uuid.New().String(),
		TraceID: extractTraceID(ctx),
	}
	label := "unknown"

	res, err := e.process(ctx, body, &event, &label)

	e.metrics.TotalRequests.WithLabelValues(label).Inc()
	event.DurationMs = time.Since(start).Milliseconds()
	event.Timestamp = start
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusRejected
		if errors.Is(err, domain.ErrAttestationFailed) {
			status = audit.StatusFailed
		}
		event.Error = err.Error()
		e.metrics.ErrorTotal.WithLabelValues(errorType(err)).Inc()
	}
	event.Status = status
	e.metrics.RequestDuration.WithLabelValues(label, status).Observe(time.Since(start).Seconds())
	e.auditor.Log(event)

	fields := []zap.Field{
		zap.String("trace_id", event.TraceID),
		zap.String("scenario", event.ScenarioType),
		zap.String("status", status),
		zap.Int64("duration_ms", event.DurationMs),
	}
	if err != nil {
		e.logger.Warn("scenario submission failed", append(fields, zap.Error(err))...)
	} else {
		e.logger.Info("scenario attested", append(fields, zap.String("attestation_id", res.AttestationID))...)
	}

	return res, err
}

func (e *ScenarioEndpoint) process(ctx context.Context, body io.Reader, event *audit.AttestationEvent, label *string) (*domain.SubmissionResult, error) {
	// 1. Разбор тела: ожидаем JSON-объект
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}
	var req map[string]interface{}
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedRequest, err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", domain.ErrMalformedRequest)
	}

	// 2. scenario_type: отсутствие ключа неотличимо от неизвестного значения
	rawType, present := req["scenario_type"]
	scenarioType, isString := rawType.(string)
	event.ScenarioType = describeScenarioType(rawType, present)

	// 3. Клиент создается заново на каждый запрос
	client, err := e.newAttestor(e.cfg.PrivateKey, AttestationNetwork)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAttestationFailed, err)
	}

	// 4. Поиск в статической таблице (точное совпадение)
	scenario, ok := domain.LookupScenario(scenarioType)
	if !isString || !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownScenario, event.ScenarioType)
	}
	*label = scenarioType

	if e.gate != nil && e.gate.IsDisabled(scenarioType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScenarioDisabled, scenarioType)
	}

	// 5. Контент и метаданные
	content := domain.NewContent(scenarioType, scenario, e.now())
	metadata := domain.NewMetadata(scenarioType, scenario)

	contentJSON, err := domain.MarshalLegacyJSON(content)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal content: %v", domain.ErrAttestationFailed, err)
	}
	metadataJSON, err := domain.MarshalLegacyJSON(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal metadata: %v", domain.ErrAttestationFailed, err)
	}
	event.ContentHash = anna.ContentHash(contentJSON)

	// 6. Синхронный вызов ANNA
	att, err := e.executor.Submit(ctx, client, domain.Submission{
		Content:   contentJSON,
		Reasoning: scenario.Reasoning,
		Category:  domain.AttestationCategory,
		Metadata:  metadataJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAttestationFailed, err)
	}
	if att == nil || att.AttestationID == "" {
		return nil, fmt.Errorf("%w: missing attestation_id", domain.ErrAttestationFailed)
	}
	event.AttestationID = att.AttestationID
	event.TxHash = att.TxHashOrPlaceholder()

	return &domain.SubmissionResult{
		Success:              true,
		AttestationID:        att.AttestationID,
		TxHash:               att.TxHashOrPlaceholder(),
		CertificateURL:       domain.CertificateURL(att.AttestationID),
		Scenario:             scenario.Title,
		RiskLevel:            scenario.RiskLevel,
		Amount:               scenario.Amount,
		Timestamp:            content.Timestamp,
		RedFlags:             scenario.RedFlags,
		RegulatoryViolations: scenario.RegulatoryViolations,
	}, nil
}

// HandlePreflight отвечает на CORS preflight: только заголовки, без тела.
func (e *ScenarioEndpoint) HandlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORSHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
}

// HandleSubmit — POST со сценарием.
// В legacy-режиме статус 200 уходит до разбора тела, ошибка видна только в поле success.
func (e *ScenarioEndpoint) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json")
	if e.cfg.LegacyStatus {
		w.WriteHeader(http.StatusOK)
	}

	res, err := e.ProcessScenario(r.Context(), &limitedBody{r: r.Body, max: e.cfg.MaxBodyBytes})
	if err != nil {
		if !e.cfg.LegacyStatus {
			w.WriteHeader(statusFor(err))
		}
		json.NewEncoder(w).Encode(domain.ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	if !e.cfg.LegacyStatus {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(res)
}

// limitedBody возвращает ошибку, если тело длиннее max байт (max <= 0 — без лимита).
type limitedBody struct {
	r   io.Reader
	max int64
	n   int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.max > 0 && l.n > l.max {
		return n, fmt.Errorf("request body exceeds %d bytes", l.max)
	}
	return n, err
}

// statusFor используется только вне legacy-режима.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest), errors.Is(err, domain.ErrUnknownScenario):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrScenarioDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAttestationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, domain.ErrUnknownScenario):
		return "unknown_scenario"
	case errors.Is(err, domain.ErrScenarioDisabled):
		return "scenario_disabled"
	case errors.Is(err, domain.ErrAttestationFailed):
		return "attestation_failed"
	default:
		return "internal"
	}
}

// describeScenarioType — как показать значение scenario_type в ошибке и журнале.
func describeScenarioType(v interface{}, present bool) string {
	if !present || v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

type nopAuditor struct{}

func (nopAuditor) Log(audit.AttestationEvent) {}
