package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "annaftx"
)

// Ключи для Sets (состояние)
const (
	RedisKeyDisabledScenarios = RedisNamespace + ":scenarios:disabled_set"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanScenarioSwitch — сигналы оператора формата "scenario:on|off" (on = выключить сценарий).
	RedisChanScenarioSwitch = RedisNamespace + ":scenarios:switch-signal"
)
