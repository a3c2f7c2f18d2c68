// Package main provides the snpko command-line tool.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".snpko"

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	err := root.Execute()
	_ = a.logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	logger *zap.Logger
}

// settings are the resolved configuration values.
type settings struct {
	WorkDir           string
	FDR               float64
	LocusThreshold    float64
	CorrelationSource string
	Seed              int64
	KnockoffTrials    int
	PSamples          int
	PThresh           float64
	ObsFreq           float64
	Workers           int
	NeverNA           bool
	DataPrefix        string
	DB                string
}

func loadSettings() settings {
	return settings{
		WorkDir:           viper.GetString("workdir"),
		FDR:               viper.GetFloat64("fdr"),
		LocusThreshold:    viper.GetFloat64("locus_threshold"),
		CorrelationSource: viper.GetString("correlation_source"),
		Seed:              viper.GetInt64("random_seed"),
		KnockoffTrials:    viper.GetInt("knockoff_trials"),
		PSamples:          viper.GetInt("p_samples"),
		PThresh:           viper.GetFloat64("p_thresh"),
		ObsFreq:           viper.GetFloat64("obs_freq"),
		Workers:           viper.GetInt("workers"),
		NeverNA:           viper.GetBool("never_na"),
		DataPrefix:        viper.GetString("data_prefix"),
		DB:                viper.GetString("db"),
	}
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "snpko",
		Short: "Knockoff-filter FDR control for SNP association studies",
		Long: `snpko finds SNPs that predict binary traits while controlling the false
discovery rate with the knockoff filter, and calibrates the resulting
selection frequencies against a permutation null built from a reference
population.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ~/.snpko.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("workdir", ".", "Working directory for intermediate and result files")
	flags.Float64("fdr", 0.1, "Target false discovery rate q in (0,1]")
	flags.Float64("locus-threshold", 0.5, "Correlation at which adjacent SNPs share a locus")
	flags.String("correlation-source", "experimental", "Cohort used for pruning correlations: experimental or reference")
	flags.Int64("random-seed", 123, "Base random seed")
	flags.Int("knockoff-trials", 100, "Knockoff trials per label")
	flags.Int("p-samples", 100, "Permutation trials for the null distribution")
	flags.Float64("p-thresh", 0.05, "Significance level for null-distribution cutoffs")
	flags.Float64("obs-freq", 0.5, "Selection frequency above which a SNP is reported as significant")
	flags.Int("workers", runtime.NumCPU(), "Parallel workers")
	flags.Bool("never-na", false, "Fail on missing genotypes instead of imputing them")
	flags.String("data-prefix", "Imaging", "Column prefix identifying label columns")
	flags.String("db", "", "DuckDB file for storing results (disabled if empty)")

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "verbose" {
			return
		}
		_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})

	cmd.AddCommand(
		newPruneCmd(a),
		newFilterCmd(a),
		newPermuteCmd(a),
		newNullCmd(a),
		newStatsCmd(a),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// initConfig loads .env, the config file and SNPKO_* environment variables.
func initConfig(cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNPKO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile == "" && errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("snpko version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// resultsDir returns the directory for final result tables.
func resultsDir(s settings) string {
	return filepath.Join(s.WorkDir, "results")
}
