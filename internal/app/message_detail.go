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

// runMessageDetail prints one stored message with its full body.
func runMessageDetail(args []string) int {
	fs := flag.NewFlagSet("message", flag.ContinueOnError)
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
		fmt.Fprintln(os.Stderr, "Usage: glossa message <message_id> [--format table|json]")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	messageID := strings.TrimSpace(fs.Arg(0))
	if messageID == "" {
		fmt.Fprintln(os.Stderr, "message_id is required")
		return 2
	}

	ctx, cancel, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	row, err := pool.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			fmt.Fprintf(os.Stderr, "Message not found: %s\n", messageID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to load message: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(row); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeMessageDetail(row); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func writeMessageDetail(row db.MessageRow) error {
	fields := [][]string{
		{"message_id", row.MessageID},
		{"topic_id", row.TopicID},
		{"role", row.Role},
		{"status", row.Status},
		{"model", derefOrEmpty(row.ModelName)},
		{"source_lang", row.SourceLang},
		{"target_lang", row.TargetLang},
		{"created_at", formatUTCTimestamp(row.CreatedAt)},
		{"updated_at", formatUTCTimestamp(row.UpdatedAt)},
	}
	if err := writeTable([]string{"field", "value"}, fields); err != nil {
		return err
	}

	if errText := derefOrEmpty(row.ErrorText); errText != "" {
		fmt.Println()
		fmt.Println("error")
		fmt.Println(errText)
	}

	fmt.Println()
	fmt.Println("content")
	fmt.Println(row.Content)
	return nil
}
