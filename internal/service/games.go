package service

import (
	"context"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
)

// GameCatalog holds the validated game configurations loaded at startup.
// Configs are read-only after load; changing them means restarting the
// service, which keeps bet resolution free of config races.
type GameCatalog struct {
	configs map[string]models.GameConfig
}

// NewGameCatalog loads every game config and rejects startup when any of
// them is malformed. A bad house edge or an inverted stake range must never
// reach bet resolution.
func NewGameCatalog(ctx context.Context, store QueryStore) (*GameCatalog, error) {
	configs, err := store.Queries().ListGameConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game configs: %w", err)
	}
	catalog := &GameCatalog{configs: make(map[string]models.GameConfig, len(configs))}
	for _, cfg := range configs {
		if cfg.HouseEdgePercent < 0 || cfg.HouseEdgePercent > 100 {
			return nil, fmt.Errorf("game %s: house edge %.2f out of range [0, 100]", cfg.GameType, cfg.HouseEdgePercent)
		}
		if cfg.MinStakeMicros <= 0 || cfg.MinStakeMicros > cfg.MaxStakeMicros {
			return nil, fmt.Errorf("game %s: invalid stake range [%d, %d]", cfg.GameType, cfg.MinStakeMicros, cfg.MaxStakeMicros)
		}
		catalog.configs[cfg.GameType] = cfg
	}
	return catalog, nil
}

// Get returns the config for an enabled game, or ErrGameNotAvailable.
func (c *GameCatalog) Get(gameType string) (models.GameConfig, error) {
	cfg, ok := c.configs[gameType]
	if !ok || !cfg.Enabled {
		return models.GameConfig{}, models.ErrGameNotAvailable
	}
	return cfg, nil
}

// Enabled lists the games currently open for play.
func (c *GameCatalog) Enabled() []models.GameConfig {
	out := make([]models.GameConfig, 0, len(c.configs))
	for _, cfg := range c.configs {
		if cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}
