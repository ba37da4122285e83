package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/glossa/internal/cli"
	"horse.fit/glossa/internal/db"
)

func runTopicDetail(args []string) int {
	fs := flag.NewFlagSet("topic", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: glossa topic <topic_id> [--format table|json]")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	topicID := strings.TrimSpace(fs.Arg(0))
	if topicID == "" {
		fmt.Fprintln(os.Stderr, "topic_id is required")
		return 2
	}

	ctx, cancel, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	topic, err := pool.GetTopicByID(ctx, topicID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			fmt.Fprintf(os.Stderr, "Topic not found: %s\n", topicID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to load topic: %v\n", err)
		return 1
	}
	messages, err := pool.ListMessagesByTopic(ctx, topicID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load topic messages: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(topicDetail{Topic: topic, Messages: messages}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeTopicDetailTables(topic, messages); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

type topicDetail struct {
	Topic    db.TopicRow     `json:"topic"`
	Messages []db.MessageRow `json:"messages"`
}

func writeTopicDetailTables(topic db.TopicRow, messages []db.MessageRow) error {
	fmt.Println("topic")
	topicRows := [][]string{
		{"topic_id", topic.TopicID},
		{"assistant_id", topic.AssistantID},
		{"name", truncateForTable(topic.Name, 80)},
		{"target_lang", topic.TargetLang},
		{"created_at", formatUTCTimestamp(topic.CreatedAt)},
		{"updated_at", formatUTCTimestamp(topic.UpdatedAt)},
	}
	if err := writeTable([]string{"field", "value"}, topicRows); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("messages")
	messageRows := make([][]string, 0, len(messages))
	for _, message := range messages {
		messageRows = append(messageRows, []string{
			message.MessageID,
			message.Role,
			message.Status,
			message.SourceLang,
			message.TargetLang,
			truncateForTable(message.Content, 60),
			formatUTCTimestamp(message.CreatedAt),
		})
	}
	return writeTable(
		[]string{"message_id", "role", "status", "source_lang", "target_lang", "content", "created_at"},
		messageRows,
	)
}
