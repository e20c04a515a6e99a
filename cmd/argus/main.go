package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/argus/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state shared by the subcommand files
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Argus - information monitoring pipeline

Usage:
  argus [flags] <command> [command flags]

Commands:
  serve      Start the scheduler and read API server (default)
  crawl      Crawl one source (--source ID) or all (--all [--dimension D])
  process    Run one analysis module (policy|personnel|tech|university|briefing|all)
  index      Regenerate data/index.json from the catalog and raw store
  version    Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Argus version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}
	if command == "version" {
		fmt.Printf("Argus version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup order: load config, apply CLI overrides, init logger, banner.
	// Auto-discover the config file when none was given.
	if len(configFiles) == 0 {
		if _, err := os.Stat("argus.toml"); err == nil {
			configFiles = append(configFiles, "argus.toml")
		} else if _, err := os.Stat("deployments/local/argus.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/argus.toml")
		}
	}

	var err error
	configFile := ""
	if len(configFiles) > 0 {
		// Later files override earlier ones; with the flat loader the last
		// file wins outright.
		configFile = configFiles[len(configFiles)-1]
	}
	config, err = common.LoadFromFile(configFile)
	if err != nil {
		arbor.NewLogger().Fatal().Str("path", configFile).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// CLI flags outrank config file and environment
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}
	if finalPort != 0 {
		config.Server.Port = finalPort
	}
	if *serverHost != "" {
		config.Server.Host = *serverHost
	}

	logger = common.InitLogger(config)
	common.InstallCrashHandler(filepath.Join(config.Storage.DataDir, "logs"))
	defer common.RecoverWithCrashFile()
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("data_dir", config.Storage.DataDir).
		Str("sources_dir", config.Sources.Dir).
		Msg("Configuration loaded")

	args := flag.Args()[1:]
	switch command {
	case "serve":
		runServe(args)
	case "crawl":
		runCrawl(args)
	case "process":
		runProcess(args)
	case "index":
		runIndex(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}
}
