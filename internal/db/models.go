package db

import (
	"time"
)

// Topic maps glossa.topics. One topic per translation session.
type Topic struct {
	TopicID     string    `gorm:"column:topic_id;type:text;primaryKey"`
	AssistantID string    `gorm:"column:assistant_id;type:text;not null"`
	Name        string    `gorm:"column:name;type:text;not null"`
	TargetLang  string    `gorm:"column:target_lang;type:text;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Topic) TableName() string { return "glossa.topics" }

// Message maps glossa.messages.
type Message struct {
	MessageID  string    `gorm:"column:message_id;type:text;primaryKey"`
	TopicID    string    `gorm:"column:topic_id;type:text;not null"`
	Role       string    `gorm:"column:role;type:text;not null"`
	Status     string    `gorm:"column:status;type:text;not null;default:pending"`
	Content    string    `gorm:"column:content;type:text;not null;default:''"`
	ErrorText  *string   `gorm:"column:error_text;type:text"`
	ModelName  *string   `gorm:"column:model_name;type:text"`
	SourceLang string    `gorm:"column:source_lang;type:text;not null;default:und"`
	TargetLang string    `gorm:"column:target_lang;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Message) TableName() string { return "glossa.messages" }

// Setting maps glossa.settings.
type Setting struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Setting) TableName() string { return "glossa.settings" }

func autoMigrateModels() []any {
	return []any{
		&Topic{},
		&Message{},
		&Setting{},
	}
}
