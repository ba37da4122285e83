package db

import (
	"context"
	"fmt"
	"strings"
)

func (p *Pool) GetSetting(ctx context.Context, key string) (string, bool, error) {
	const q = `
SELECT s.value
FROM glossa.settings s
WHERE s.key = $1
LIMIT 1
`

	var value string
	err := p.QueryRow(ctx, q, strings.TrimSpace(key)).Scan(&value)
	if err != nil {
		if IsNoRows(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query setting: %w", err)
	}
	return value, true, nil
}

func (p *Pool) UpsertSetting(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO glossa.settings (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key)
DO UPDATE SET
	value = EXCLUDED.value,
	updated_at = now()
`

	if _, err := p.Exec(ctx, q, strings.TrimSpace(key), value); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// SettingRow is one stored settings key.
type SettingRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (p *Pool) ListSettings(ctx context.Context) ([]SettingRow, error) {
	const q = `
SELECT s.key, s.value
FROM glossa.settings s
ORDER BY s.key ASC
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	items := make([]SettingRow, 0, 8)
	for rows.Next() {
		var row SettingRow
		if err := rows.Scan(&row.Key, &row.Value); err != nil {
			return nil, fmt.Errorf("scan setting row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate setting rows: %w", err)
	}

	return items, nil
}
