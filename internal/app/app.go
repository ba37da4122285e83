package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "languages":
		return runLanguages(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "topics":
		return runTopics(args[1:])
	case "topic":
		return runTopicDetail(args[1:])
	case "message":
		return runMessageDetail(args[1:])
	case "translate":
		return runTranslate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "glossa CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  glossa <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  languages  List selectable target languages")
	fmt.Fprintln(os.Stderr, "  settings   Read or write durable settings")
	fmt.Fprintln(os.Stderr, "  topics     List recent translation topics")
	fmt.Fprintln(os.Stderr, "  topic      Show one topic with its messages")
	fmt.Fprintln(os.Stderr, "  message    Show one stored message in full")
	fmt.Fprintln(os.Stderr, "  translate  Translate a text or URL selection once, streaming to stdout")
	fmt.Fprintln(os.Stderr, "  serve      Start Echo API server")
	fmt.Fprintln(os.Stderr, "  daemon     Install or control the systemd service")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"glossa <command> -h\" for command-specific flags.")
}
