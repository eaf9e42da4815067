package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/ftx-attest/internal/domain"
	"github.com/xela07ax/ftx-attest/internal/infra"
)

// ScenarioSwitch — оперативный выключатель сценариев.
// Состояние живет в Redis (set + pub/sub), в горячем пути читается только локальная мапа.
// Статическая таблица сценариев при этом не меняется.
type ScenarioSwitch struct {
	mu       sync.RWMutex
	disabled map[string]struct{}
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewScenarioSwitch(rdb *redis.Client, logger *zap.Logger) *ScenarioSwitch {
	return &ScenarioSwitch{
		disabled: make(map[string]struct{}),
		rdb:      rdb,
		logger:   logger.With(zap.String("mod", "scenario-switch")),
	}
}

// Init загружает текущее состояние выключателей при старте и после переподключения
func (s *ScenarioSwitch) Init(ctx context.Context) error {
	ids, err := s.rdb.SMembers(ctx, infra.RedisKeyDisabledScenarios).Result()
	if err != nil {
		return fmt.Errorf("scenario switch: load disabled set: %w", err)
	}

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, known := domain.LookupScenario(id); !known {
			s.logger.Warn("ignoring unknown scenario in disabled set", zap.String("scenario", id))
			continue
		}
		next[id] = struct{}{}
	}

	s.mu.Lock()
	s.disabled = next
	s.mu.Unlock()

	s.logger.Info("scenario switch synced", zap.Strings("disabled", s.Disabled()))
	return nil
}

// StartListener подписывается на сигналы оператора. Блокирует до отмены ctx.
func (s *ScenarioSwitch) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, s.rdb, s.logger, infra.RedisChanScenarioSwitch,
		func() error { return s.Init(ctx) },
		s.Set,
	)
}

// Set выключает (disabled=true) или включает сценарий.
func (s *ScenarioSwitch) Set(scenario string, disabled bool) {
	s.mu.Lock()
	if disabled {
		s.disabled[scenario] = struct{}{}
	} else {
		delete(s.disabled, scenario)
	}
	s.mu.Unlock()

	s.logger.Info("scenario switch signal", zap.String("scenario", scenario), zap.Bool("disabled", disabled))
}

func (s *ScenarioSwitch) IsDisabled(scenario string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.disabled[scenario]
	return ok
}

// Disabled возвращает отсортированный список выключенных сценариев.
func (s *ScenarioSwitch) Disabled() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.disabled))
	for id := range s.disabled {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
