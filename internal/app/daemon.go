package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	daemonUnitName = "glossa.service"
	systemdUnitDir = "/etc/systemd/system"
)

func runDaemon(args []string) int {
	if len(args) == 0 {
		printDaemonUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	rest := args[1:]
	switch action {
	case "help", "-h", "--help":
		printDaemonUsage()
		return 0
	case "install":
		return runDaemonInstall(rest)
	case "uninstall":
		return runDaemonUninstall(rest)
	case "start", "stop", "restart":
		return runDaemonSystemctl(action, rest, true)
	case "status":
		return runDaemonSystemctl(action, rest, false)
	}

	fmt.Fprintf(os.Stderr, "unknown daemon action: %s\n\n", args[0])
	printDaemonUsage()
	return 2
}

type daemonInstallOptions struct {
	user    string
	listen  string
	envFile string
}

func parseDaemonInstallFlags(args []string) (daemonInstallOptions, int, bool) {
	fs := flag.NewFlagSet("daemon install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultUser := strings.TrimSpace(os.Getenv("USER"))
	if defaultUser == "" {
		defaultUser = "root"
	}

	user := fs.String("user", defaultUser, "Run the service as this Linux user")
	listen := fs.String("listen", ":8080", "Listen address passed to glossa serve")
	envFile := fs.String("env-file", "", "Absolute path to the .env file loaded by the service (optional)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return daemonInstallOptions{}, 0, false
		}
		return daemonInstallOptions{}, 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon install takes no positional arguments")
		return daemonInstallOptions{}, 2, false
	}

	opts := daemonInstallOptions{
		user:    strings.TrimSpace(*user),
		listen:  strings.TrimSpace(*listen),
		envFile: strings.TrimSpace(*envFile),
	}
	switch {
	case opts.user == "":
		fmt.Fprintln(os.Stderr, "--user must not be empty")
	case opts.listen == "":
		fmt.Fprintln(os.Stderr, "--listen must not be empty")
	case opts.envFile != "" && !filepath.IsAbs(opts.envFile):
		fmt.Fprintln(os.Stderr, "--env-file must be an absolute path")
	default:
		return opts, 0, true
	}
	return daemonInstallOptions{}, 2, false
}

func runDaemonInstall(args []string) int {
	opts, code, ok := parseDaemonInstallFlags(args)
	if !ok {
		return code
	}
	if err := requireRoot("install"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	binaryPath, err := resolveBinaryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate the glossa binary: %v\n", err)
		return 1
	}

	unitPath := filepath.Join(systemdUnitDir, daemonUnitName)
	unit := buildUnitFile(opts.user, binaryPath, opts.listen, opts.envFile)
	if err := os.WriteFile(unitPath, []byte(unit), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", unitPath, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd: %v\n", err)
		return 1
	}
	if err := runSystemctl("enable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable %s: %v\n", daemonUnitName, err)
		return 1
	}

	fmt.Printf("Installed %s\n", daemonUnitName)
	fmt.Println("The service is enabled on boot. Run `glossa daemon start` to start it now.")
	return 0
}

func runDaemonUninstall(args []string) int {
	if code, ok := parseNoArgDaemonFlags("uninstall", args); !ok {
		return code
	}
	if err := requireRoot("uninstall"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// Best effort; the unit may already be stopped or disabled.
	if err := runSystemctl("stop", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: stop failed: %v\n", err)
	}
	if err := runSystemctl("disable", daemonUnitName); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: disable failed: %v\n", err)
	}

	unitPath := filepath.Join(systemdUnitDir, daemonUnitName)
	if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", unitPath, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %s\n", daemonUnitName)
	return 0
}

func runDaemonSystemctl(action string, args []string, needsRoot bool) int {
	if code, ok := parseNoArgDaemonFlags(action, args); !ok {
		return code
	}
	if needsRoot {
		if err := requireRoot(action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	systemctlArgs := []string{action}
	if action == "status" {
		systemctlArgs = append(systemctlArgs, "--no-pager")
	}
	if err := runSystemctl(append(systemctlArgs, daemonUnitName)...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s %s: %v\n", action, daemonUnitName, err)
		return 1
	}
	return 0
}

// parseNoArgDaemonFlags handles -h for daemon actions that take no flags.
func parseNoArgDaemonFlags(action string, args []string) (int, bool) {
	fs := flag.NewFlagSet("daemon "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "daemon %s takes no positional arguments\n", action)
		return 2, false
	}
	return 0, true
}

func requireRoot(action string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("daemon %s requires root privileges; run with sudo: sudo glossa daemon %s", action, action)
}

func resolveBinaryPath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolvedPath, err := filepath.EvalSymlinks(exePath); err == nil {
		exePath = resolvedPath
	}
	return filepath.Abs(exePath)
}

func buildUnitFile(userName, binaryPath, listenAddr, envFile string) string {
	var unit strings.Builder
	unit.WriteString("[Unit]\n")
	unit.WriteString("Description=Glossa translation API service\n")
	unit.WriteString("After=network.target postgresql.service\n\n")
	unit.WriteString("[Service]\n")
	unit.WriteString("Type=simple\n")
	fmt.Fprintf(&unit, "User=%s\n", userName)
	fmt.Fprintf(&unit, "WorkingDirectory=%s\n", filepath.Dir(binaryPath))
	if envFile != "" {
		fmt.Fprintf(&unit, "EnvironmentFile=%s\n", envFile)
	}
	fmt.Fprintf(&unit, "ExecStart=%s serve --listen %s\n", binaryPath, listenAddr)
	unit.WriteString("Restart=on-failure\n")
	unit.WriteString("RestartSec=5\n\n")
	unit.WriteString("[Install]\n")
	unit.WriteString("WantedBy=multi-user.target\n")
	return unit.String()
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func printDaemonUsage() {
	fmt.Fprintln(os.Stderr, "glossa daemon")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  glossa daemon <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  install     Write the unit file, daemon-reload, and enable the service on boot")
	fmt.Fprintln(os.Stderr, "  uninstall   Stop, disable, and remove the unit file")
	fmt.Fprintln(os.Stderr, "  start       Start the service")
	fmt.Fprintln(os.Stderr, "  stop        Stop the service")
	fmt.Fprintln(os.Stderr, "  restart     Restart the service")
	fmt.Fprintln(os.Stderr, "  status      Show service status")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Install flags:")
	fmt.Fprintln(os.Stderr, "  --user <name>       Service user (default: $USER)")
	fmt.Fprintln(os.Stderr, "  --listen <addr>     Listen address (default: :8080)")
	fmt.Fprintln(os.Stderr, "  --env-file <path>   Absolute path to the service .env file")
}
