package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/uelogd/uelogd/internal/backup"
	"github.com/uelogd/uelogd/internal/httpserver"
	"github.com/uelogd/uelogd/internal/journal"
	"github.com/uelogd/uelogd/internal/model"
	"github.com/uelogd/uelogd/internal/serverlog"
	"github.com/uelogd/uelogd/internal/sources"
	"github.com/uelogd/uelogd/internal/store"
	"github.com/uelogd/uelogd/internal/udpserver"
	"golang.org/x/sync/errgroup"
)

// runServer starts headless log ingestion with the HTTP API.
func runServer(cfg appConfig) error {
	// Initialize DuckDB store
	st, err := store.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	defer st.Close()

	// Open local ingest journal for crash-safe replay and durable buffering.
	var ingestJournal *journal.Journal
	if cfg.JournalPath != "" {
		ingestJournal, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open ingest journal: %w", err)
		}
		defer ingestJournal.Close()
		if err := replayUncommittedJournal(ingestJournal, st); err != nil {
			return fmt.Errorf("failed to replay ingest journal: %w", err)
		}
	}

	// Start retention cleaner for automatic log expiry
	retentionCleaner := store.NewRetentionCleaner(st, cfg.LogRetention)
	if retentionCleaner != nil {
		defer retentionCleaner.Stop()
	}

	// Start periodic local snapshots when enabled.
	backupManager, err := backup.NewManager(st, backup.Config{
		Enabled:  cfg.BackupEnabled,
		LocalDir: cfg.BackupDir,
		Interval: cfg.BackupInterval,
		KeepLast: cfg.BackupKeepLast,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	if backupManager != nil {
		defer backupManager.Stop()
	}

	// File tailer registry, seeded with the configured boot-time tails.
	registry := sources.NewRegistry(st, cfg.PollInterval)
	defer registry.StopAll()
	for _, spec := range cfg.TailFiles {
		path, name := parseTailSpec(spec)
		if id := registry.AddFileTailer(path, name); id == "" {
			serverlog.Errorf("sources", "failed to tail %s", path)
		}
	}

	// UDP datagram receiver
	udpConf := udpserver.ServerConfig{MaxDatagramSize: cfg.MaxDatagramSize}
	if ingestJournal != nil {
		udpConf.Journal = ingestJournal
	}
	udpServer := udpserver.NewServer(cfg.UDPAddr, st, udpConf)
	if err := udpServer.Start(); err != nil {
		return fmt.Errorf("failed to start UDP receiver: %w", err)
	}
	defer udpServer.Stop()

	// Start HTTP API server if enabled
	var apiServer *httpserver.Server
	if cfg.APIEnabled {
		apiServer = httpserver.NewServer(cfg.APIAddr, st, registry)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts when the signal arrives, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)

	// Use errgroup for concurrent goroutine lifecycle management. A fatal
	// API serve failure cancels the group and brings the process down
	// cleanly; the signal handler cancels the parent context.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if apiServer != nil {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case err := <-apiServer.Err():
				return fmt.Errorf("api server: %w", err)
			}
		})
	}

	if err := g.Wait(); err != nil {
		serverlog.Errorf("server", "errgroup exited with error: %v", err)
	}

	// If we reach here, graceful shutdown succeeded within the deadline.
	// The signal goroutine (if active) dies with the process.
	signal.Stop(sigCh)

	return nil
}

// parseTailSpec splits a tail-files entry of the form path or path:name.
// A colon only counts as a separator when what follows contains no path
// separator, so paths with embedded colons still work.
func parseTailSpec(spec string) (path, name string) {
	idx := strings.LastIndexByte(spec, ':')
	if idx <= 0 || strings.ContainsRune(spec[idx+1:], '/') {
		return spec, ""
	}
	return spec[:idx], spec[idx+1:]
}

// replayUncommittedJournal re-inserts entries that were appended before a
// crash but never confirmed in the store.
func replayUncommittedJournal(j *journal.Journal, st *store.Store) error {
	var maxSeq uint64
	replayed := 0

	if err := j.Replay(func(seq uint64, entry *model.LogEntry) error {
		entry.ID = 0
		if _, err := st.Insert(entry); err != nil {
			return err
		}
		if seq > maxSeq {
			maxSeq = seq
		}
		replayed++
		return nil
	}); err != nil {
		return err
	}

	if maxSeq > 0 {
		if err := j.Commit(maxSeq); err != nil {
			return err
		}
	}
	if replayed > 0 {
		serverlog.Logf("journal", "replayed %d uncommitted entries", replayed)
	}
	return nil
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦ ╦╔═╗╦  ╔═╗╔═╗╔╦╗
    ║ ║║╣ ║  ║ ║║ ╦ ║║
    ╚═╝╚═╝╩═╝╚═╝╚═╝═╩╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	// Ingestion
	lines = append(lines, bold.Render("    Ingestion"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  UDP Ingest     %s", check, cyan.Render(cfg.UDPAddr)))
	if len(cfg.TailFiles) > 0 {
		lines = append(lines, fmt.Sprintf("    %s  File Tails     %s", check, cyan.Render(fmt.Sprintf("%d configured", len(cfg.TailFiles)))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  File Tails     %s", dot, dim.Render("none")))
	}
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	// Storage
	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	if cfg.JournalPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", check, dim.Render(shortenPath(cfg.JournalPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Journal        %s", dot, dim.Render("disabled")))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	if cfg.LogRetention > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(fmt.Sprintf("%d days", cfg.LogRetention))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("disabled")))
	}

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
