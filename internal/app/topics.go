package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/glossa/internal/cli"
	"horse.fit/glossa/internal/db"
)

func runTopics(args []string) int {
	fs := flag.NewFlagSet("topics", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	limit := fs.Int("limit", 20, "Maximum topics to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "topics does not accept positional arguments")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	topics, err := pool.ListRecentTopics(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query topics: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(topics); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeTopicSummaryTable(topics); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func writeTopicSummaryTable(items []db.TopicRow) error {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.TopicID,
			truncateForTable(item.Name, 60),
			item.TargetLang,
			formatUTCTimestamp(item.CreatedAt),
		})
	}

	return writeTable(
		[]string{"topic_id", "name", "target_lang", "created_at"},
		rows,
	)
}
