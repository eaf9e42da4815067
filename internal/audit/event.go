package audit

import "time"

// Статусы записи журнала
const (
	StatusSuccess  = "SUCCESS"  // ANNA вернула аттестацию
	StatusFailed   = "FAILED"   // Ошибка клиента аттестации
	StatusRejected = "REJECTED" // Запрос отклонен до вызова клиента (битый JSON, неизвестный/выключенный сценарий)
)

type AttestationEvent struct {
	ID            string    `json:"id"`             // UUID события
	TraceID       string    `json:"trace_id"`       // Сквозной ID запроса
	ScenarioType  string    `json:"scenario_type"`  // Какой сценарий запрашивали (может быть пустым)
	Status        string    `json:"status"`         // SUCCESS, FAILED, REJECTED
	AttestationID string    `json:"attestation_id"` // ID от ANNA
	TxHash        string    `json:"tx_hash"`
	ContentHash   string    `json:"content_hash"`
	Error         string    `json:"error"`
	Timestamp     time.Time `json:"timestamp"`
	DurationMs    int64     `json:"duration_ms"` // Время обработки
}
