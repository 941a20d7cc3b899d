package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/mslinn/simsnap/pkg/config"
)

var version = "dev" // Set by -ldflags during build

func main() {
	var (
		showVersion bool
		showHelp    bool
		configPath  string
	)

	pflag.BoolVarP(&showVersion, "version", "V", false, "Show version and exit")
	pflag.BoolVarP(&showHelp, "help", "h", false, "Show this help message")
	pflag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.simsnap-config)")

	pflag.Parse()

	if showVersion {
		fmt.Printf("simsnap-config version %s\n", version)
		os.Exit(0)
	}

	if showHelp {
		printHelp()
		os.Exit(0)
	}

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: subcommand required\n\n")
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]

	if configPath != "" {
		os.Setenv("SIMSNAP_CONFIG", configPath)
	}

	switch subcommand {
	case "init":
		handleInit(args[1:])
	case "set":
		handleSet(args[1:])
	case "get":
		handleGet(args[1:])
	case "show":
		handleShow()
	case "path":
		handlePath()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func handleInit(args []string) {
	var force bool
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	flags.BoolVarP(&force, "force", "f", false, "Overwrite existing config file")
	flags.Parse(args)

	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(os.Stderr, "Error: config file already exists at %s\n", configPath)
		fmt.Fprintf(os.Stderr, "Use --force to overwrite\n")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Created config file at %s\n", configPath)
	fmt.Println("\nDefault configuration:")
	printValues(cfg)
	fmt.Println("\nEdit the file or use 'simsnap-config set' to customize.")
}

func handleSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Error: 'set' requires KEY and VALUE arguments\n\n")
		fmt.Fprintf(os.Stderr, "Usage: simsnap-config set KEY VALUE\n")
		printKeys(os.Stderr)
		os.Exit(1)
	}

	key := args[0]
	value := args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try running 'simsnap-config init' first\n")
		os.Exit(1)
	}

	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printKeys(os.Stderr)
		os.Exit(1)
	}

	configPath := config.GetConfigPath()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Set %s = %v\n", key, value)
}

func handleGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: 'get' requires KEY argument\n\n")
		fmt.Fprintf(os.Stderr, "Usage: simsnap-config get KEY\n")
		printKeys(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printKeys(os.Stderr)
		os.Exit(1)
	}
	fmt.Println(value)
}

func handleShow() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Configuration from: %s\n\n", config.GetConfigPath())
	printValues(cfg)

	fmt.Println("\nEnvironment variable overrides:")
	for _, env := range []struct{ name, key string }{
		{"SIMSNAP_DB", "database"},
		{"SIMSNAP_BASELINES", "baselines"},
		{"SIMSNAP_RESULTS", "results"},
		{"SIMSNAP_DEVICE", "device"},
		{"SIMSNAP_TOLERANCE", "tolerance"},
		{"SIMSNAP_LOG_LEVEL", "log_level"},
		{"SIMSNAP_UPDATE", "update"},
	} {
		if v := os.Getenv(env.name); v != "" {
			fmt.Printf("  %s=%s (overrides %s)\n", env.name, v, env.key)
		}
	}
	if _, err := os.Stat(config.EnvFile); err == nil {
		fmt.Printf("  %s present in working directory\n", config.EnvFile)
	}
}

func handlePath() {
	fmt.Println(config.GetConfigPath())
}

func printValues(cfg *config.Config) {
	for _, key := range config.Keys {
		value, _ := cfg.Get(key)
		fmt.Printf("  %-28s %s\n", key+":", value)
	}
}

func printKeys(w io.Writer) {
	fmt.Fprintf(w, "\nValid keys:\n")
	for _, key := range config.Keys {
		fmt.Fprintf(w, "  %s\n", key)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: simsnap-config [OPTIONS] SUBCOMMAND\n\n")
	fmt.Fprintf(os.Stderr, "Manage simsnap configuration\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  init          Create default config file\n")
	fmt.Fprintf(os.Stderr, "  set KEY VAL   Set configuration value\n")
	fmt.Fprintf(os.Stderr, "  get KEY       Get configuration value\n")
	fmt.Fprintf(os.Stderr, "  show          Show all configuration\n")
	fmt.Fprintf(os.Stderr, "  path          Show config file path\n\n")
	pflag.PrintDefaults()
}

func printHelp() {
	fmt.Printf("simsnap-config - Manage simsnap configuration\n\n")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Manages configuration for simsnap commands. Configuration is stored in\n")
	fmt.Printf("  ~/.simsnap-config by default. Values from a %s file in the working\n", config.EnvFile)
	fmt.Printf("  directory override the file, and environment variables override both.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  simsnap-config [OPTIONS] SUBCOMMAND\n\n")

	fmt.Printf("SUBCOMMANDS:\n")
	fmt.Printf("  init          Create default configuration file\n")
	fmt.Printf("  set KEY VAL   Set a configuration value\n")
	fmt.Printf("  get KEY       Get a configuration value\n")
	fmt.Printf("  show          Display all configuration values\n")
	fmt.Printf("  path          Show the config file path\n\n")

	fmt.Printf("CONFIGURATION KEYS:\n")
	for _, key := range config.Keys {
		fmt.Printf("  %s\n", key)
	}

	fmt.Printf("\nENVIRONMENT VARIABLES:\n")
	fmt.Printf("  SIMSNAP_CONFIG      Path to config file\n")
	fmt.Printf("  SIMSNAP_DB          Override database path\n")
	fmt.Printf("  SIMSNAP_BASELINES   Override baseline directory\n")
	fmt.Printf("  SIMSNAP_RESULTS     Override results directory\n")
	fmt.Printf("  SIMSNAP_DEVICE      Override simulator UDID\n")
	fmt.Printf("  SIMSNAP_TOLERANCE   Override default tolerance (0..1)\n")
	fmt.Printf("  SIMSNAP_LOG_LEVEL   Override log level (trace, debug, info, warn, error)\n")
	fmt.Printf("  SIMSNAP_UPDATE      Override update mode (true/false)\n\n")

	fmt.Printf("OPTIONS:\n")
	pflag.PrintDefaults()

	fmt.Printf("\nEXAMPLES:\n")
	fmt.Printf("  # Create default config\n")
	fmt.Printf("  simsnap-config init\n\n")

	fmt.Printf("  # Allow 0.1%% of pixels to differ\n")
	fmt.Printf("  simsnap-config set tolerance 0.001\n\n")

	fmt.Printf("  # Compare full pages segment by segment\n")
	fmt.Printf("  simsnap-config set capture.stitch false\n\n")

	fmt.Printf("  # View all configuration\n")
	fmt.Printf("  simsnap-config show\n\n")
}
