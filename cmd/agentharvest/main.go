// cmd/agentharvest/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propdata/agentharvest/internal/config"
	"github.com/propdata/agentharvest/internal/crawler"
	"github.com/propdata/agentharvest/internal/fetch"
	"github.com/propdata/agentharvest/internal/monitoring"
	"github.com/propdata/agentharvest/internal/output"
	"github.com/propdata/agentharvest/internal/utils"
)

// Version information set by build flags
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: config file required")
			fmt.Fprintln(os.Stderr, "Usage: agentharvest run <config.yaml>")
			os.Exit(1)
		}
		runHarvest(os.Args[2])

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: config file required")
			fmt.Fprintln(os.Stderr, "Usage: agentharvest validate <config.yaml>")
			os.Exit(1)
		}
		validateConfig(os.Args[2])

	case "template":
		generateTemplate(os.Args[2:])

	case "version", "--version", "-v":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runHarvest(configFile string) {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log := utils.NewLoggerWithLevel(utils.ParseLogLevel(cfg.LogLevel))

	summary, err := harvest(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printSummary(summary)
}

// harvest wires the fetchers, the output sink, and the optional
// monitoring server together, then hands control to the crawler.
func harvest(cfg *config.Config, log utils.Logger) (*crawler.Summary, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := fetch.NewHTTPFetcher(fetch.Config{
		Timeout:       time.Duration(cfg.Fetch.Timeout) * time.Second,
		RetryAttempts: cfg.Fetch.RetryAttempts,
		RetryDelay:    time.Duration(cfg.Fetch.RetryDelay) * time.Second,
		MaxDelay:      time.Duration(cfg.Fetch.MaxDelay) * time.Second,
		MinInterval:   time.Duration(cfg.Fetch.MinInterval * float64(time.Second)),
		UserAgents:    cfg.Fetch.UserAgents,
		Headers:       cfg.Fetch.Headers,
		ProxyServer:   cfg.Proxy.Server,
		ProxyRegion:   cfg.Proxy.Region,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("building fetcher: %w", err)
	}
	defer fetcher.Close()

	var escalated fetch.Fetcher
	if cfg.Browser.Enabled {
		headless := true
		if cfg.Browser.Headless != nil {
			headless = *cfg.Browser.Headless
		}
		browser := fetch.NewBrowserFetcher(fetch.BrowserConfig{
			Headless:   headless,
			UserAgent:  cfg.Browser.UserAgent,
			NavTimeout: time.Duration(cfg.Browser.NavTimeout) * time.Second,
			Wait:       time.Duration(cfg.Browser.Wait) * time.Second,
		}, log)
		defer browser.Close()
		escalated = browser
	}

	sink, err := output.NewWriter(output.Config{
		Format:     output.Format(cfg.Output.Format),
		File:       cfg.Output.File,
		DSN:        cfg.Output.DSN,
		Table:      cfg.Output.Table,
		Database:   cfg.Output.Database,
		Collection: cfg.Output.Collection,
		Sheet:      cfg.Output.Sheet,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("building output writer: %w", err)
	}

	var metrics *monitoring.Metrics
	if cfg.Monitoring.Enabled {
		metrics = monitoring.NewMetrics()
		server := monitoring.NewServer(monitoring.ServerConfig{
			Address: cfg.Monitoring.Address,
			Version: version,
		}, metrics, log)
		go func() {
			if serr := server.Start(ctx); serr != nil {
				log.Errorf("monitoring server stopped: %v", serr)
			}
		}()
	}

	controller := crawler.New(crawler.Config{
		Fetcher:       fetcher,
		Escalated:     escalated,
		Sink:          sink,
		Metrics:       metrics,
		Log:           log,
		ResultsWanted: cfg.ResultsWanted,
		MaxPages:      cfg.MaxPages,
		PageDelay:     time.Duration(cfg.PageDelay) * time.Second,
		BlockWait:     time.Duration(cfg.BlockWait) * time.Second,
	})

	summary, err := controller.Run(ctx, cfg.Seeds())

	// Close flushes buffered formats; a flush failure matters as much
	// as a crawl failure.
	if cerr := sink.Close(); cerr != nil {
		if err == nil {
			err = fmt.Errorf("closing output: %w", cerr)
		} else {
			log.Errorf("closing output: %v", cerr)
		}
	}
	return summary, err
}

func printSummary(s *crawler.Summary) {
	fmt.Println()
	fmt.Printf("Targets:            %d\n", s.Targets)
	fmt.Printf("Pages fetched:      %d\n", s.PagesFetched)
	fmt.Printf("Records extracted:  %d\n", s.Extracted)
	fmt.Printf("Records saved:      %d\n", s.Saved)
	fmt.Printf("Duplicates skipped: %d\n", s.Duplicates)
	if s.SoftBlocks > 0 {
		fmt.Printf("Soft blocks:        %d\n", s.SoftBlocks)
	}
	if s.FetchErrors > 0 {
		fmt.Printf("Fetch errors:       %d\n", s.FetchErrors)
	}
	if s.SinkErrors > 0 {
		fmt.Printf("Output errors:      %d\n", s.SinkErrors)
	}
	fmt.Printf("Elapsed:            %s\n", s.Elapsed.Round(10*time.Millisecond))
}

func validateConfig(configFile string) {
	if _, err := config.LoadFromFile(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Configuration file '%s' is valid\n", configFile)
}

func generateTemplate(args []string) {
	kind := "basic"
	for i := 0; i < len(args); i++ {
		if args[i] == "--type" && i+1 < len(args) {
			kind = args[i+1]
			i++
		}
	}

	if err := config.SaveToWriter(config.Template(kind), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("agentharvest - estate and letting agent directory scraper")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  agentharvest run <config.yaml>       Run a harvest")
	fmt.Println("  agentharvest validate <config.yaml>  Validate a configuration file")
	fmt.Println("  agentharvest template [--type NAME]  Print a starter configuration")
	fmt.Println("  agentharvest version                 Show version information")
	fmt.Println("  agentharvest help                    Show this help")
	fmt.Println()
	fmt.Println("Template types:")
	fmt.Println("  basic   JSONL output (default)")
	fmt.Println("  sqlite  SQLite database output")
}

func printVersion() {
	fmt.Printf("agentharvest version %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
