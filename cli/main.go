package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kardianos/service"

	"github.com/cxusage/cxusage/cli/internal/config"
	"github.com/cxusage/cxusage/cli/internal/output"
	"github.com/cxusage/cxusage/cli/internal/report"
	"github.com/cxusage/cxusage/cli/internal/sync"
	"github.com/cxusage/cxusage/internal/usage"
)

const version = "0.3.0"

const maxChartPoints = 48

func main() {
	// Detect subcommand first
	command := "report"
	args := os.Args[1:]

	var filteredArgs []string
	if len(args) > 0 {
		switch args[0] {
		case "report", "export", "merge", "sync", "config":
			command = args[0]
			filteredArgs = args[1:]
		default:
			filteredArgs = args
		}
	}

	switch command {
	case "report":
		runReport(filteredArgs)
	case "export":
		runExport(filteredArgs)
	case "merge":
		runMerge(filteredArgs)
	case "sync":
		runSync(filteredArgs)
	case "config":
		runConfig(filteredArgs)
	}
}

// reportFlags registers the date-window and data-source flags shared by
// report, export, and merge.
func reportFlags(fs *flag.FlagSet, opts *report.Options) {
	fs.StringVar(&opts.Since, "since", "", "Start date filter (YYYY-MM-DD)")
	fs.StringVar(&opts.Until, "until", "", "End date filter (YYYY-MM-DD)")
	fs.IntVar(&opts.Days, "days", 0, "Only the last N days")
	fs.StringVar(&opts.PricingFile, "pricing-file", "", "JSON pricing book overriding the embedded rates")
	fs.StringVar(&opts.CodexHome, "codex-home", "", "Codex home directory (default ~/.codex)")
}

func parseWindow(opts *report.Options) {
	if err := report.ValidateDay(opts.Since); err != nil {
		fmt.Fprintf(os.Stderr, "Error: --since: %v\n", err)
		os.Exit(1)
	}
	if err := report.ValidateDay(opts.Until); err != nil {
		fmt.Fprintf(os.Stderr, "Error: --until: %v\n", err)
		os.Exit(1)
	}
	if opts.Days < 0 {
		fmt.Fprintf(os.Stderr, "Error: --days must be positive\n")
		os.Exit(1)
	}
}

func loadLocalOrExit(opts report.Options) (*usage.Aggregate, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	agg, err := report.LoadLocal(opts, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if agg == nil {
		fmt.Println("No usage data found in ~/.codex/sessions/")
		os.Exit(0)
	}
	return agg, cfg
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)

	var (
		opts      report.Options
		jsonOut   bool
		breakdown bool
		chart     bool
		compact   bool
		showHelp  bool
		showVer   bool
	)
	reportFlags(fs, &opts)
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&breakdown, "breakdown", false, "Show per-model breakdown")
	fs.BoolVar(&chart, "chart", false, "Show hourly activity chart")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")
	fs.BoolVar(&showHelp, "help", false, "Show help")
	fs.BoolVar(&showHelp, "h", false, "Show help")
	fs.BoolVar(&showVer, "version", false, "Show version")
	fs.BoolVar(&showVer, "v", false, "Show version")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `cxusage - Codex CLI token usage report

Usage: cxusage [command] [options]

Commands:
  report    Show usage report (default)
  export    Write the full dataset to a JSON export
  merge     Merge exported datasets into one report
  sync      Sync usage data to server
  config    Configure sync settings

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cxusage                              Show all-time usage
  cxusage --days 7 --breakdown
  cxusage --since 2026-01-01 --until 2026-01-31
  cxusage export -o usage.json
  cxusage merge usage-laptop.json usage-desktop.json
  cxusage config --server https://example.com --api-key <key>
  cxusage sync
`)
	}

	fs.Parse(args)

	if showVer {
		fmt.Printf("cxusage version %s\n", version)
		return
	}
	if showHelp {
		fs.Usage()
		return
	}
	parseWindow(&opts)

	agg, _ := loadLocalOrExit(opts)
	view := opts.ResolveWindow(agg.Daily.Labels, time.Now())
	stats := usage.ComputeStats(agg, view)

	if jsonOut {
		output.PrintJSON(agg, view, stats)
		return
	}

	output.PrintStats(stats)
	output.PrintDailyTable(agg, view, output.TableOptions{ForceCompact: compact})
	if breakdown {
		output.PrintModelBreakdown(agg, view)
	}
	if chart {
		points := usage.CompressPoints(usage.BuildHourlyPoints(agg, view), maxChartPoints)
		output.PrintChart(points)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var (
		opts    report.Options
		outPath string
	)
	reportFlags(fs, &opts)
	fs.StringVar(&outPath, "o", "", "Output file (default stdout)")
	fs.StringVar(&outPath, "output", "", "Output file (default stdout)")

	fs.Parse(args)
	parseWindow(&opts)

	agg, _ := loadLocalOrExit(opts)

	data, err := usage.EncodeExport(agg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding export: %v\n", err)
		os.Exit(1)
	}

	if outPath == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d days to %s\n", len(agg.Daily.Labels), outPath)
}

func runMerge(args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)

	var (
		opts         report.Options
		jsonOut      bool
		breakdown    bool
		compact      bool
		includeLocal bool
		outPath      string
	)
	reportFlags(fs, &opts)
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&breakdown, "breakdown", false, "Show per-model breakdown")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&includeLocal, "local", false, "Also merge this machine's usage")
	fs.StringVar(&outPath, "o", "", "Write the merged dataset to a file instead of reporting")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cxusage merge [options] <export.json> [more exports...]

Merges exported datasets from several machines into one report. Merge
each machine's export at most once; overlapping exports from the same
machine double count.

Options:
`)
		fs.PrintDefaults()
	}

	fs.Parse(args)
	parseWindow(&opts)

	paths := fs.Args()
	if len(paths) == 0 && !includeLocal {
		fs.Usage()
		os.Exit(1)
	}

	var extra []*usage.Aggregate
	if includeLocal {
		local, _ := loadLocalOrExit(opts)
		extra = append(extra, local)
	}

	result, err := report.MergeFiles(paths, extra...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if result.Invalid > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d invalid file(s).\n", result.Invalid)
	}
	if result.Merged == nil {
		fmt.Println("Nothing to merge.")
		os.Exit(1)
	}

	if outPath != "" {
		data, err := usage.EncodeExport(result.Merged)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding export: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outPath, err)
			os.Exit(1)
		}
		fmt.Printf("Merged %d dataset(s), %d days, into %s\n",
			result.Loaded+len(extra), len(result.Merged.Daily.Labels), outPath)
		return
	}

	agg := result.Merged
	view := opts.ResolveWindow(agg.Daily.Labels, time.Now())
	stats := usage.ComputeStats(agg, view)

	if jsonOut {
		output.PrintJSON(agg, view, stats)
		return
	}
	output.PrintStats(stats)
	output.PrintDailyTable(agg, view, output.TableOptions{ForceCompact: compact})
	if breakdown {
		output.PrintModelBreakdown(agg, view)
	}
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var (
		server      string
		apiKey      string
		codexHome   string
		pricingFile string
		show        bool
	)
	fs.StringVar(&server, "server", "", "Server URL")
	fs.StringVar(&apiKey, "api-key", "", "API key for authentication")
	fs.StringVar(&codexHome, "codex-home", "", "Codex home directory")
	fs.StringVar(&pricingFile, "pricing-file", "", "Default pricing book file")
	fs.BoolVar(&show, "show", false, "Show current configuration")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cxusage config [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cxusage config --server https://example.com --api-key cxu_xxx
  cxusage config --show
`)
	}

	fs.Parse(args)

	if show {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cfg.Server == "" {
			fmt.Println("No configuration found. Run 'cxusage config --server <url> --api-key <key>' to configure.")
			return
		}
		fmt.Printf("Server: %s\n", cfg.Server)
		if len(cfg.APIKey) > 14 {
			fmt.Printf("API Key: %s...%s\n", cfg.APIKey[:10], cfg.APIKey[len(cfg.APIKey)-4:])
		}
		if cfg.ClientID != "" {
			fmt.Printf("Client ID: %s\n", cfg.ClientID)
		}
		if cfg.CodexHome != "" {
			fmt.Printf("Codex home: %s\n", cfg.CodexHome)
		}
		if cfg.PricingFile != "" {
			fmt.Printf("Pricing file: %s\n", cfg.PricingFile)
		}
		return
	}

	if server == "" && apiKey == "" && codexHome == "" && pricingFile == "" {
		fs.Usage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}

	if server != "" {
		cfg.Server = server
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if codexHome != "" {
		cfg.CodexHome = codexHome
	}
	if pricingFile != "" {
		cfg.PricingFile = pricingFile
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration saved.")
}

// syncService implements service.Interface for background syncing
type syncService struct {
	interval time.Duration
	stop     chan struct{}
	logger   service.Logger
}

func (s *syncService) Start(svc service.Service) error {
	s.stop = make(chan struct{})
	go s.run()
	return nil
}

func (s *syncService) Stop(svc service.Service) error {
	close(s.stop)
	return nil
}

func (s *syncService) run() {
	cfg, err := config.Load()
	if err != nil || cfg.Server == "" || cfg.APIKey == "" {
		if s.logger != nil {
			s.logger.Error("Not configured. Run 'cxusage config' first.")
		}
		return
	}

	client := sync.NewClient(cfg)

	// Sync immediately on start
	s.doSync(client, cfg)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.doSync(client, cfg)
		case <-s.stop:
			return
		}
	}
}

func (s *syncService) doSync(client *sync.Client, cfg *config.Config) {
	agg, err := report.LoadLocal(report.Options{}, cfg)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error reading usage data: %v", err)
		}
		return
	}
	if agg == nil {
		return
	}

	data, err := usage.EncodeExport(agg)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error encoding export: %v", err)
		}
		return
	}

	days, err := client.Sync(data)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Error syncing: %v", err)
		}
		return
	}

	if s.logger != nil {
		s.logger.Infof("Synced dataset, %d days on server", days)
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	var (
		dryRun   bool
		interval time.Duration
	)
	fs.BoolVar(&dryRun, "dry-run", false, "Show what would be synced without sending")
	fs.DurationVar(&interval, "interval", time.Hour, "Sync interval for service mode (e.g., 1h, 30m)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cxusage sync [command] [options]

Commands:
  (none)      Sync once
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cxusage sync                       Sync once
  cxusage sync install               Install service (syncs every hour)
  cxusage sync install --interval 30m
  cxusage sync start                 Start the service
  cxusage sync stop                  Stop the service
`)
	}

	// Check for service commands before parsing flags
	var svcCommand string
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs.Parse(args)

	svcConfig := &service.Config{
		Name:        "cxusage-sync",
		DisplayName: "cxusage Sync Service",
		Description: "Automatically syncs Codex CLI usage data to server",
		Arguments:   []string{"sync", "run", fmt.Sprintf("--interval=%s", interval)},
	}

	svc := &syncService{interval: interval}
	s, err := service.New(svc, svcConfig)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	switch svcCommand {
	case "install":
		cfg, err := config.Load()
		if err != nil || cfg.Server == "" || cfg.APIKey == "" {
			fmt.Fprintf(os.Stderr, "Error: Not configured. Run 'cxusage config --server <url> --api-key <key>' first.\n")
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		if err := s.Start(); err != nil {
			log.Fatalf("Service installed but failed to start: %v", err)
		}
		fmt.Printf("Service installed and started.\n")
		fmt.Printf("Sync interval: %s\n", interval)

	case "start":
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("Service started.")

	case "stop":
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("Service stopped.")

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("Service uninstalled.")

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}

	case "run":
		// Running as the installed service
		logger, err := s.Logger(nil)
		if err == nil {
			svc.logger = logger
		}
		if err := s.Run(); err != nil && logger != nil {
			logger.Error(err)
		}

	default:
		cfg, err := config.Load()
		if err != nil || cfg.Server == "" || cfg.APIKey == "" {
			fmt.Fprintf(os.Stderr, "Error: Not configured. Run 'cxusage config --server <url> --api-key <key>' first.\n")
			os.Exit(1)
		}

		client := sync.NewClient(cfg)
		doSyncOnce(client, cfg, dryRun)
	}
}

func doSyncOnce(client *sync.Client, cfg *config.Config, dryRun bool) {
	agg, err := report.LoadLocal(report.Options{}, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading usage data: %v\n", err)
		os.Exit(1)
	}
	if agg == nil {
		fmt.Println("No usage data to sync.")
		return
	}

	fmt.Printf("Dataset covers %d days (%s to %s).\n",
		len(agg.Daily.Labels), agg.Range.Start, agg.Range.End)

	if dryRun {
		fmt.Println("Dry run - no data sent.")
		return
	}

	data, err := usage.EncodeExport(agg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding export: %v\n", err)
		os.Exit(1)
	}

	days, err := client.Sync(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sync complete. Server now holds %d days for this client.\n", days)
}
