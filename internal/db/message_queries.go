package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MessageRow is one stored conversation message.
type MessageRow struct {
	MessageID  string    `json:"message_id"`
	TopicID    string    `json:"topic_id"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	Content    string    `json:"content"`
	ErrorText  *string   `json:"error_text,omitempty"`
	ModelName  *string   `json:"model_name,omitempty"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InsertMessageParams controls message inserts.
type InsertMessageParams struct {
	MessageID  string
	TopicID    string
	Role       string
	Status     string
	Content    string
	ModelName  *string
	SourceLang string
	TargetLang string
}

func (p *Pool) InsertMessage(ctx context.Context, row InsertMessageParams) error {
	const q = `
INSERT INTO glossa.messages (
	message_id,
	topic_id,
	role,
	status,
	content,
	model_name,
	source_lang,
	target_lang,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
`

	sourceLang := strings.TrimSpace(row.SourceLang)
	if sourceLang == "" {
		sourceLang = "und"
	}
	if _, err := p.Exec(
		ctx,
		q,
		strings.TrimSpace(row.MessageID),
		strings.TrimSpace(row.TopicID),
		row.Role,
		row.Status,
		row.Content,
		row.ModelName,
		sourceLang,
		row.TargetLang,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Pool) UpdateMessageStatus(ctx context.Context, messageID, status string) error {
	const q = `
UPDATE glossa.messages
SET status = $2,
	updated_at = now()
WHERE message_id = $1
`

	affected, err := p.Exec(ctx, q, strings.TrimSpace(messageID), status)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

// AppendMessageContent appends one streamed chunk to a message body.
func (p *Pool) AppendMessageContent(ctx context.Context, messageID, chunk string) error {
	const q = `
UPDATE glossa.messages
SET content = content || $2,
	updated_at = now()
WHERE message_id = $1
`

	affected, err := p.Exec(ctx, q, strings.TrimSpace(messageID), chunk)
	if err != nil {
		return fmt.Errorf("append message content: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

// SetMessageContent replaces the message body and status in one statement.
func (p *Pool) SetMessageContent(ctx context.Context, messageID, content, status string) error {
	const q = `
UPDATE glossa.messages
SET content = $2,
	status = $3,
	error_text = NULL,
	updated_at = now()
WHERE message_id = $1
`

	affected, err := p.Exec(ctx, q, strings.TrimSpace(messageID), content, status)
	if err != nil {
		return fmt.Errorf("set message content: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (p *Pool) SetMessageError(ctx context.Context, messageID, errorText string) error {
	const q = `
UPDATE glossa.messages
SET status = 'error',
	error_text = $2,
	updated_at = now()
WHERE message_id = $1
`

	affected, err := p.Exec(ctx, q, strings.TrimSpace(messageID), errorText)
	if err != nil {
		return fmt.Errorf("set message error: %w", err)
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (p *Pool) ListMessagesByTopic(ctx context.Context, topicID string) ([]MessageRow, error) {
	const q = `
SELECT
	m.message_id,
	m.topic_id,
	m.role,
	m.status,
	m.content,
	m.error_text,
	m.model_name,
	m.source_lang,
	m.target_lang,
	m.created_at,
	m.updated_at
FROM glossa.messages m
WHERE m.topic_id = $1
ORDER BY m.created_at ASC, m.message_id ASC
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(topicID))
	if err != nil {
		return nil, fmt.Errorf("query messages by topic: %w", err)
	}
	defer rows.Close()

	items := make([]MessageRow, 0, 16)
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(
			&row.MessageID,
			&row.TopicID,
			&row.Role,
			&row.Status,
			&row.Content,
			&row.ErrorText,
			&row.ModelName,
			&row.SourceLang,
			&row.TargetLang,
			&row.CreatedAt,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}

	return items, nil
}

func (p *Pool) GetMessageByID(ctx context.Context, messageID string) (MessageRow, error) {
	const q = `
SELECT
	m.message_id,
	m.topic_id,
	m.role,
	m.status,
	m.content,
	m.error_text,
	m.model_name,
	m.source_lang,
	m.target_lang,
	m.created_at,
	m.updated_at
FROM glossa.messages m
WHERE m.message_id = $1
LIMIT 1
`

	var row MessageRow
	err := p.QueryRow(ctx, q, strings.TrimSpace(messageID)).Scan(
		&row.MessageID,
		&row.TopicID,
		&row.Role,
		&row.Status,
		&row.Content,
		&row.ErrorText,
		&row.ModelName,
		&row.SourceLang,
		&row.TargetLang,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return MessageRow{}, ErrNoRows
		}
		return MessageRow{}, fmt.Errorf("query message: %w", err)
	}
	return row, nil
}
