package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kolapsis/pomo/internal/config"
	"github.com/kolapsis/pomo/internal/recovery"
	"github.com/kolapsis/pomo/internal/store"
)

var version = "dev"

func versionString() string {
	return fmt.Sprintf("pomo %s", version)
}

// processName is the token the liveness identity probe looks for in the
// process table. Both the worker and tray run as this binary.
const processName = "pomo"

func main() {
	fs := flag.NewFlagSet("pomo", flag.ExitOnError)
	jsonMode := fs.Bool("json", false, "output results as JSON")
	dataDir := fs.String("data-dir", "", "data directory (db, pid, log); allows running multiple instances")
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = printUsage
	_ = fs.Parse(os.Args[1:]) // ExitOnError handles errors

	if *showVersion {
		fmt.Println(versionString())
		return
	}
	if fs.NArg() == 0 {
		printUsage()
		os.Exit(1)
	}

	cmd := fs.Arg(0)
	args := fs.Args()[1:]

	// version needs no config, store, or recovery scan.
	if cmd == "version" {
		fmt.Println(versionString())
		return
	}

	// The worker and tray entry points skip the recovery scan: the worker is
	// the process recovery would be checking for, and the tray only reads.
	runRecovery := cmd != "worker" && cmd != "tray"

	a := newApp(*jsonMode, *dataDir, *configPath, runRecovery)
	defer a.close()

	switch cmd {
	case "start":
		a.cmdStart(args)
	case "pause":
		a.cmdPause(args)
	case "resume":
		a.cmdResume(args)
	case "cancel":
		a.cmdCancel(args)
	case "finish":
		a.cmdFinish(args)
	case "status":
		a.cmdStatus(args)
	case "history":
		a.cmdHistory(args)
	case "worker":
		a.cmdWorker(args)
	case "tray":
		a.cmdTray(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: pomo [flags] <command> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  start [duration]       Start a new interval (25, 25m, 90s, 10m30s)\n")
	fmt.Fprintf(os.Stderr, "  pause                  Pause the running interval\n")
	fmt.Fprintf(os.Stderr, "  resume                 Resume a paused or interrupted interval\n")
	fmt.Fprintf(os.Stderr, "  cancel                 Cancel the active interval\n")
	fmt.Fprintf(os.Stderr, "  finish [resolution]    Resolve a finished interval (completed, abandoned)\n")
	fmt.Fprintf(os.Stderr, "  status                 Show current timer status\n")
	fmt.Fprintf(os.Stderr, "  history [-n N] [-daily] Show interval history\n")
	fmt.Fprintf(os.Stderr, "  tray [-run|-stop]      Manage the status tray process\n")
	fmt.Fprintf(os.Stderr, "  worker <interval-id>   Run the timer worker (internal)\n")
	fmt.Fprintf(os.Stderr, "  version                Print version\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	fmt.Fprintf(os.Stderr, "  -json                  Output results as JSON\n")
	fmt.Fprintf(os.Stderr, "  -data-dir DIR          Use an alternate data directory\n")
	fmt.Fprintf(os.Stderr, "  -config FILE           Use a specific config file\n")
	fmt.Fprintf(os.Stderr, "  -version               Print version\n")
}

// app wires one command invocation: config, store handle, and output mode.
type app struct {
	cfg *config.Config
	st  store.Store
	out *output
}

func newApp(jsonMode bool, dataDir, configPath string, runRecovery bool) *app {
	out := &output{jsonMode: jsonMode}

	cfg, err := loadConfig(configPath)
	if err != nil {
		out.errorExit("CONFIG_ERROR", err.Error())
	}
	if dataDir != "" {
		cfg.DataDir = config.ExpandHome(dataDir)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		out.errorExit("CONFIG_ERROR", fmt.Sprintf("creating data directory: %v", err))
	}

	setupLogging(cfg)

	st, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		out.errorExit("STORE_ERROR", fmt.Sprintf("opening database: %v", err))
	}

	if runRecovery {
		scanner := &recovery.Scanner{
			Store:         st,
			WorkerPIDPath: cfg.WorkerPIDPath(),
			WorkerCommand: processName,
		}
		if err := scanner.Scan(time.Now().Unix()); err != nil {
			slog.Error("recovery scan failed", "error", err)
		}
	}

	return &app{cfg: cfg, st: st, out: out}
}

func (a *app) close() {
	_ = a.st.Close()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogging sends slog output to the shared log file in the data dir so
// command stdout stays clean for results.
func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err == nil {
		w = f
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}
