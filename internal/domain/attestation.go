package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	// AttestationCategory — фиксированная категория, под которой ANNA хранит наши аттестации.
	AttestationCategory = "ftx_trading_decision"
	// CertificateURLPrefix — шаблон ссылки на страницу проверки сертификата.
	CertificateURLPrefix = "https://annaprotocol.com/verify.html?id="
	// TimestampLayout — ISO-8601 с микросекундами, без зоны.
	TimestampLayout = "2006-01-02T15:04:05.000000"
	// TimestampLayoutWhole — то же для момента с нулевыми микросекундами: дробная часть опускается.
	TimestampLayoutWhole = "2006-01-02T15:04:05"
)

// PlaceholderTxHash отдается клиенту, если сервис аттестации не вернул tx_hash.
var PlaceholderTxHash = "0x" + strings.Repeat("a", 64)

// Ошибки уровня запроса. На проводе все они схлопываются в {success:false, error:...}.
var (
	ErrMalformedRequest  = errors.New("malformed request")
	ErrUnknownScenario   = errors.New("unknown scenario type")
	ErrAttestationFailed = errors.New("attestation failed")
	ErrScenarioDisabled  = errors.New("scenario disabled")
)

// Content — структурированный контент, уходящий в ANNA как JSON-строка.
type Content struct {
	Platform             string    `json:"platform"`
	DecisionType         string    `json:"decision_type"`
	Decision             string    `json:"decision"`
	Title                string    `json:"title"`
	Amount               string    `json:"amount"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Description          string    `json:"description"`
	Timestamp            string    `json:"timestamp"`
	AISystem             string    `json:"ai_system"`
	RedFlagsCount        int       `json:"red_flags_count"`
	RegulatoryViolations []string  `json:"regulatory_violations"`
}

// Metadata — сопроводительные метаданные аттестации.
type Metadata struct {
	Platform         string    `json:"platform"`
	Entity           string    `json:"entity"`
	DecisionType     string    `json:"decision_type"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Amount           string    `json:"amount"`
	RedFlags         []string  `json:"red_flags"`
	ComplianceStatus string    `json:"compliance_status"`
	CaseStudy        string    `json:"case_study"`
	RegulatoryBodies []string  `json:"regulatory_bodies"`
}

// NewContent собирает контент для сценария на момент ts.
func NewContent(scenarioType string, s Scenario, ts time.Time) Content {
	return Content{
		Platform:             "FTX/Alameda",
		DecisionType:         scenarioType,
		Decision:             s.Decision,
		Title:                s.Title,
		Amount:               s.Amount,
		RiskLevel:            s.RiskLevel,
		Description:          s.Description,
		Timestamp:            FormatTimestamp(ts),
		AISystem:             "Proprietary Trading Algorithm v3.2",
		RedFlagsCount:        len(s.RedFlags),
		RegulatoryViolations: s.RegulatoryViolations,
	}
}

// FormatTimestamp отбрасывает наносекунды сверх микросекунд и дробную часть, если микросекунд нет.
func FormatTimestamp(ts time.Time) string {
	if ts.Nanosecond()/1000 == 0 {
		return ts.Format(TimestampLayoutWhole)
	}
	return ts.Format(TimestampLayout)
}

func NewMetadata(scenarioType string, s Scenario) Metadata {
	return Metadata{
		Platform:         "FTX",
		Entity:           "Alameda Research",
		DecisionType:     strings.ToUpper(scenarioType),
		RiskLevel:        s.RiskLevel,
		Amount:           s.Amount,
		RedFlags:         s.RedFlags,
		ComplianceStatus: "MULTIPLE_VIOLATIONS",
		CaseStudy:        "Historical reconstruction",
		RegulatoryBodies: []string{"SEC", "CFTC", "DOJ"},
	}
}

// Submission — то, что уходит во внешний клиент аттестации.
type Submission struct {
	Content   string
	Reasoning string
	Category  string
	Metadata  string
}

// Attestation — ответ внешнего сервиса. TxHash может отсутствовать.
type Attestation struct {
	AttestationID string `json:"attestation_id"`
	TxHash        string `json:"tx_hash,omitempty"`
}

// TxHashOrPlaceholder возвращает tx_hash или заглушку из 64 символов 'a'.
func (a Attestation) TxHashOrPlaceholder() string {
	if a.TxHash == "" {
		return PlaceholderTxHash
	}
	return a.TxHash
}

// CertificateURL подставляет ID аттестации в фиксированный шаблон.
func CertificateURL(attestationID string) string {
	return CertificateURLPrefix + attestationID
}

// SubmissionResult — тело успешного ответа.
type SubmissionResult struct {
	Success              bool      `json:"success"`
	AttestationID        string    `json:"attestation_id"`
	TxHash               string    `json:"tx_hash"`
	CertificateURL       string    `json:"certificate_url"`
	Scenario             string    `json:"scenario"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Amount               string    `json:"amount"`
	Timestamp            string    `json:"timestamp"`
	RedFlags             []string  `json:"red_flags"`
	RegulatoryViolations []string  `json:"regulatory_violations"`
}

// ErrorResponse — единое тело ошибки.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
