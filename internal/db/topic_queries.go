package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TopicRow is one stored translation session topic.
type TopicRow struct {
	TopicID     string    `json:"topic_id"`
	AssistantID string    `json:"assistant_id"`
	Name        string    `json:"name"`
	TargetLang  string    `json:"target_lang"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InsertTopicParams controls topic inserts.
type InsertTopicParams struct {
	TopicID     string
	AssistantID string
	Name        string
	TargetLang  string
}

func (p *Pool) InsertTopic(ctx context.Context, row InsertTopicParams) error {
	const q = `
INSERT INTO glossa.topics (
	topic_id,
	assistant_id,
	name,
	target_lang,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, now(), now())
`

	if _, err := p.Exec(
		ctx,
		q,
		strings.TrimSpace(row.TopicID),
		strings.TrimSpace(row.AssistantID),
		row.Name,
		row.TargetLang,
	); err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (p *Pool) GetTopicByID(ctx context.Context, topicID string) (TopicRow, error) {
	const q = `
SELECT
	t.topic_id,
	t.assistant_id,
	t.name,
	t.target_lang,
	t.created_at,
	t.updated_at
FROM glossa.topics t
WHERE t.topic_id = $1
LIMIT 1
`

	var row TopicRow
	err := p.QueryRow(ctx, q, strings.TrimSpace(topicID)).Scan(
		&row.TopicID,
		&row.AssistantID,
		&row.Name,
		&row.TargetLang,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return TopicRow{}, ErrNoRows
		}
		return TopicRow{}, fmt.Errorf("query topic: %w", err)
	}
	return row, nil
}

func (p *Pool) UpdateTopicTargetLang(ctx context.Context, topicID, targetLang string) error {
	const q = `
UPDATE glossa.topics
SET target_lang = $2,
	updated_at = now()
WHERE topic_id = $1
`

	affected, err := p.Exec(ctx, q, strings.TrimSpace(topicID), targetLang)
	if err != nil {
		return fmt.Errorf("update topic target language: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (p *Pool) ListRecentTopics(ctx context.Context, limit int) ([]TopicRow, error) {
	const q = `
SELECT
	t.topic_id,
	t.assistant_id,
	t.name,
	t.target_lang,
	t.created_at,
	t.updated_at
FROM glossa.topics t
ORDER BY t.created_at DESC, t.topic_id DESC
LIMIT $1
`

	if limit <= 0 {
		limit = 50
	}
	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent topics: %w", err)
	}
	defer rows.Close()

	items := make([]TopicRow, 0, limit)
	for rows.Next() {
		var row TopicRow
		if err := rows.Scan(
			&row.TopicID,
			&row.AssistantID,
			&row.Name,
			&row.TargetLang,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan topic row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic rows: %w", err)
	}

	return items, nil
}
