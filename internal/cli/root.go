package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/pipeline"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "v0.1.0"

var (
	cfgFile     string
	verbose     bool
	logLevel    string
	metricsFile string
	dbPath      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wordlist",
	Short: "Wordlist - crossword word list curation",
	Long: `Wordlist curates crossword word lists.

Reviewers approve or reject candidate words. A classifier trained on
embeddings of the labeled words scores every candidate from 0 to 50, and
the final list keeps every approved word plus the best scored candidates.

Typical session:
  wordlist import spreadthewordlist.txt
  wordlist label accept HOUSE TABLE
  wordlist label reject XQZJ
  wordlist train
  wordlist score
  wordlist distill --target 50000 --output wordlist.txt`,
	SilenceErrors:      true,
	SilenceUsage:       true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: writeMetrics,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wordlist %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.wordlist/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the command")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("metrics.file", rootCmd.PersistentFlags().Lookup("metrics-file"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.wordlist")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables match WORDLIST_*; nested keys use underscores
	// (WORDLIST_EMBEDDING_PROVIDER)
	viper.SetEnvPrefix("WORDLIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(model.DefaultConfig())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers the keys that may come from the environment.
// AutomaticEnv only resolves keys viper already knows about.
func setDefaults(cfg *model.Config) {
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("database.path", cfg.Database.Path)
	viper.SetDefault("embedding.provider", cfg.Embedding.Provider)
	viper.SetDefault("embedding.model", cfg.Embedding.Model)
	viper.SetDefault("embedding.base_url", cfg.Embedding.BaseURL)
	viper.SetDefault("embedding.dimensions", cfg.Embedding.Dimensions)
	viper.SetDefault("embedding.concurrency", cfg.Embedding.Concurrency)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.memory_entries", cfg.Cache.MemoryEntries)
	viper.SetDefault("clues.source", cfg.Clues.Source)
	viper.SetDefault("clues.http_proxy", cfg.Clues.HTTPProxy)
	viper.SetDefault("clues.https_proxy", cfg.Clues.HTTPSProxy)
	viper.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
	viper.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Embedding.Provider == "ollama" && cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := viper.GetString("log_level")
	if verbose {
		level = "debug"
	}
	if err := logger.Init(level, os.Stderr); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

func writeMetrics(cmd *cobra.Command, args []string) error {
	path := viper.GetString("metrics.file")
	if path == "" {
		return nil
	}
	return metrics.Default().WriteTextfile(path)
}

// openPipeline loads the configuration and opens the pipeline over it
func openPipeline(ctx context.Context) (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	m := pipeline.NewMetrics(cfg.Metrics)
	metrics.SetDefault(m)

	p, err := pipeline.New(ctx, cfg, pipeline.WithMetrics(m))
	if err != nil {
		return nil, nil, fmt.Errorf("open pipeline: %w", err)
	}
	return p, cfg, nil
}

// printReport summarizes a batch report on stderr
func printReport(what string, r *model.BatchReport) {
	if r == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "✓ %s: %d succeeded, %d failed (of %d)\n", what, r.Succeeded, r.Failed, r.Total)
	if !verbose {
		return
	}
	for w, err := range r.Errors {
		fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", w, err)
	}
}
