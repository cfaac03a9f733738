package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ppiankov/docket/internal/config"
)

// Version is the docket release
const Version = "0.1.0"

var (
	cfgFile     string
	verbose     bool
	datasetPath string
	noCache     bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "docket",
	Short: "Docket - Supreme Court term outcome statistics",
	Long: `Docket reads a dataset of adjudicated Supreme Court cases and derives
the views of a term dashboard: overview, per-justice bloc counts, pairwise
agreement, vote-split and decision-type distributions, and a case explorer.

It also audits the dataset for completeness and consistency, and can serve
every view as a read-only JSON API.

Counts describe recorded votes only; docket does not interpret opinions.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogger(); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of docket.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "docket v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.docket/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVarP(&datasetPath, "dataset", "d", "", "dataset file or URL (default: dataset.path from config)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch of remote datasets)")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("dataset.path", rootCmd.PersistentFlags().Lookup("dataset"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".docket"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match DOCKET_*
	viper.SetEnvPrefix("DOCKET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// initLogger builds the production logger, at debug level with --verbose
func initLogger() error {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	l, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if noCache {
		c.Dataset.Cache.Enabled = false
	}
	cfg = c

	logger.Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("dataset", cfg.Dataset.Path),
		zap.Bool("cache", cfg.Dataset.Cache.Enabled))
	return nil
}
