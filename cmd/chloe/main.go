package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gabmichels/chloe-engine/internal/api"
	"github.com/gabmichels/chloe-engine/internal/calendar"
	"github.com/gabmichels/chloe-engine/internal/config"
	"github.com/gabmichels/chloe-engine/internal/engine"
	"github.com/gabmichels/chloe-engine/internal/executor"
	"github.com/gabmichels/chloe-engine/internal/idle"
	"github.com/gabmichels/chloe-engine/internal/store"
	"github.com/gabmichels/chloe-engine/internal/trigger"
	"github.com/gabmichels/chloe-engine/internal/tui"
	"github.com/gabmichels/chloe-engine/internal/version"
	"github.com/gabmichels/chloe-engine/internal/webhook"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println(version.Info())
			return
		case "help", "--help", "-h":
			printHelp()
			return
		case "run":
			exitOn(runOnce())
		case "schedule":
			exitOn(runSchedule())
		case "today":
			exitOn(runToday())
		case "now":
			exitOn(runNow())
		case "daemon":
			exitOn(runDaemon())
		case "serve":
			exitOn(runServer())
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
		return
	}

	// No command: launch the dashboard
	app, err := bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.store.Close()

	if err := tui.Run(app.store, app.calendar, app.engine); err != nil {
		fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
		os.Exit(1)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// app bundles everything one invocation needs
type app struct {
	cfg      *config.Config
	store    *store.Store
	calendar *calendar.Scheduler
	engine   *engine.Engine
	dataDir  string
}

func bootstrap() (*app, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := store.New(filepath.Join(dataDir, "chloe.db"))
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	cal := calendar.New(st, calendar.Config{
		WorkStartHour: cfg.WorkStartHour,
		WorkEndHour:   cfg.WorkEndHour,
		BlockMinutes:  cfg.BlockMinutes,
		BlocksPerTask: cfg.BlocksPerTask,
	})

	selector := idle.New(st, rand.New(rand.NewSource(time.Now().UnixNano())))
	notifier := webhook.NewNotifier(cfg.DiscordWebhook, cfg.SlackWebhook)

	eng := engine.New(st, executor.New(cfg.WorkingDir), selector, notifier)
	eng.SetCandidateLimit(cfg.CandidateLimit)

	return &app{cfg: cfg, store: st, calendar: cal, engine: eng, dataDir: dataDir}, nil
}

func runOnce() error {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	modeFlag := runCmd.String("mode", "auto", "execution mode: auto, simulation, or approval")
	_ = runCmd.Parse(os.Args[2:])

	mode, err := engine.ParseMode(*modeFlag)
	if err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	result := a.engine.Run(ctx, mode)
	switch result.Action {
	case engine.ActionTask:
		fmt.Printf("task: #%d %q (score %.2f)\n", result.TaskID, result.TaskTitle, result.Score)
	case engine.ActionIdle:
		fmt.Printf("idle: %s\n", result.Activity.Name)
	case engine.ActionEscalation:
		fmt.Printf("escalation: %s\n", result.Reason)
	default:
		fmt.Printf("nothing to do: %s\n", result.Reason)
	}
	fmt.Printf("decided in %s (mode %s, invocation %s)\n", result.Elapsed, result.Mode, result.InvocationID)

	if result.Failed() {
		return fmt.Errorf("dispatch failed: %s", result.Err)
	}
	return nil
}

func runSchedule() error {
	schedCmd := flag.NewFlagSet("schedule", flag.ExitOnError)
	days := schedCmd.Int("days", 0, "scheduling horizon in days (default from config)")
	_ = schedCmd.Parse(os.Args[2:])

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	horizon := a.cfg.ScheduleDaysAhead
	if *days > 0 {
		horizon = *days
	}

	summary, err := a.calendar.AutoSchedule(horizon)
	if err != nil {
		return err
	}
	fmt.Printf("%d of %d pending tasks placed across %d blocks\n",
		summary.ScheduledCount, summary.TotalPending, summary.TotalBlocks)
	return nil
}

func runToday() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	entries, err := a.calendar.TodaysSchedule()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no blocks scheduled today")
		return nil
	}

	for _, entry := range entries {
		window := fmt.Sprintf("%s - %s",
			entry.Block.StartTime.Format("15:04"),
			entry.Block.EndTime.Format("15:04"))
		if entry.Block.TaskID == nil {
			fmt.Printf("%s  (open)\n", window)
			continue
		}
		fmt.Printf("%s  %s [%s]\n", window, entry.TaskTitle, entry.TaskStatus)
	}
	return nil
}

func runNow() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	task, err := a.calendar.CurrentTask()
	if err != nil {
		return err
	}
	if task == nil {
		fmt.Println("no task scheduled right now")
		return nil
	}
	fmt.Printf("#%d %s [%s, %s]\n", task.ID, task.Title, task.Status, task.Priority)
	return nil
}

func runDaemon() error {
	daemonCmd := flag.NewFlagSet("daemon", flag.ExitOnError)
	modeFlag := daemonCmd.String("mode", "auto", "execution mode: auto, simulation, or approval")
	_ = daemonCmd.Parse(os.Args[2:])

	mode, err := engine.ParseMode(*modeFlag)
	if err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	pidPath := filepath.Join(a.dataDir, "daemon.pid")
	if pid, running := isDaemonRunning(pidPath); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer os.Remove(pidPath)

	trig := trigger.New(a.engine, a.calendar, a.cfg, mode)
	if err := trig.Start(); err != nil {
		return fmt.Errorf("starting trigger: %w", err)
	}
	defer trig.Stop()

	fmt.Println("chloe daemon started")
	fmt.Printf("PID: %d\n", os.Getpid())
	fmt.Printf("Mode: %s\n", mode)
	if next := trig.NextDecision(); next != nil {
		fmt.Printf("Next decision: %s\n", next.Format("2006-01-02 15:04:05"))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	return nil
}

func runServer() error {
	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	port := serveCmd.Int("port", 8080, "HTTP server port")
	_ = serveCmd.Parse(os.Args[2:])

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.store.Close()

	server := api.NewServer(a.store, a.calendar, a.engine)

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("chloe API server starting on %s\n", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// isDaemonRunning checks if a daemon is running by reading PID file and checking process
func isDaemonRunning(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}

	// On Unix, FindProcess always succeeds, so send signal 0 to check if alive
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}

	return pid, true
}

func printHelp() {
	fmt.Println(`chloe - autonomous executive decision engine

Usage:
  chloe                     Launch the interactive dashboard
  chloe run [--mode M]      Run one decision loop invocation and exit
  chloe schedule [--days N] Rebuild the time-block calendar
  chloe today               Print today's schedule
  chloe now                 Print the task scheduled right now
  chloe daemon [--mode M]   Run the decision loop on a cron trigger
  chloe serve [--port P]    Run the HTTP API server
  chloe version             Show version information
  chloe help                Show this help message

Modes:
  auto                      Execute the chosen action (default)
  simulation                Decide and log, but execute nothing
  approval                  Execute, but ask before irreversible steps

Environment Variables:
  CHLOE_DATA                Override data directory (default: ~/.chloe)`)
}
