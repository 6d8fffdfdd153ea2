package repository

import (
	"context"
	"fmt"

	"github.com/Jae876/crestara/internal/models"
)

func (q *Queries) ListGameConfigs(ctx context.Context) ([]models.GameConfig, error) {
	rows, err := q.db.Query(ctx, `
		SELECT game_type, min_stake_micros, max_stake_micros, house_edge_percent, enabled
		FROM game_configs
		ORDER BY game_type
	`)
	if err != nil {
		return nil, fmt.Errorf("list game configs: %w", err)
	}
	defer rows.Close()

	var out []models.GameConfig
	for rows.Next() {
		var cfg models.GameConfig
		if err := rows.Scan(&cfg.GameType, &cfg.MinStakeMicros, &cfg.MaxStakeMicros, &cfg.HouseEdgePercent, &cfg.Enabled); err != nil {
			return nil, fmt.Errorf("scan game config: %w", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// UpsertGameConfig writes a game configuration row. Game configs are
// owned by the admin surface; this exists for seeding and tests.
func (q *Queries) UpsertGameConfig(ctx context.Context, cfg models.GameConfig) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO game_configs (game_type, min_stake_micros, max_stake_micros, house_edge_percent, enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_type) DO UPDATE SET
			min_stake_micros = EXCLUDED.min_stake_micros,
			max_stake_micros = EXCLUDED.max_stake_micros,
			house_edge_percent = EXCLUDED.house_edge_percent,
			enabled = EXCLUDED.enabled
	`, cfg.GameType, cfg.MinStakeMicros, cfg.MaxStakeMicros, cfg.HouseEdgePercent, cfg.Enabled)
	if err != nil {
		return fmt.Errorf("upsert game config: %w", err)
	}
	return nil
}
