package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hannajonsd/await-analysis/analyzer"
	"github.com/hannajonsd/await-analysis/cache"
	"github.com/hannajonsd/await-analysis/config"
	"github.com/hannajonsd/await-analysis/watcher"
)

const (
	exitFlagged = 1
	exitFatal   = 2
)

var (
	configFlag         string
	formatFlag         string
	outputFlag         string
	verboseFlag        bool
	noColorFlag        bool
	jobsFlag           int
	watchFlag          bool
	cacheFlag          bool
	clearCacheFlag     bool
	generateConfigFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "await-analysis [files or directories]",
	Short: "Flags asynchronous JavaScript calls whose promise is dropped",
	Long: `await-analysis scans JavaScript and TypeScript sources for calls that
look asynchronous but are neither awaited, returned, chained with .then
nor otherwise consumed.

Examples:
  await-analysis .                          # Analyze current directory
  await-analysis src/app.js src/lib         # Analyze specific files and directories
  await-analysis --format=sarif -o out.sarif .
  await-analysis --watch src                # Re-run on every change
  await-analysis --generate-config          # Generate sample config file`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalysis,
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		color.Red("Error: %v\n", err)
		os.Exit(exitFatal)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file")
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format (console, json, sarif)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report to a file")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log every classification decision")
	rootCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 0, "Number of files analyzed in parallel")
	rootCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch mode for development")
	rootCmd.Flags().BoolVar(&cacheFlag, "cache", false, "Reuse results for unchanged files")
	rootCmd.Flags().BoolVar(&clearCacheFlag, "clear-cache", false, "Drop cached results before analyzing")
	rootCmd.Flags().BoolVar(&generateConfigFlag, "generate-config", false, "Generate sample configuration file")
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	if generateConfigFlag {
		return generateConfig()
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	applyFlags(cmd, cfg)

	logger := newLogger(cfg.Output.Verbose)
	colors := cfg.Output.Colors && cfg.Output.OutputFile == "" && isTerminal(os.Stdout)

	if len(args) == 0 {
		args = []string{"."}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a := analyzer.New(cfg, logger)
	if cfg.Analysis.Cache {
		c, err := openCache(cfg.Analysis.CacheDir)
		if err != nil {
			return err
		}
		logger.Info("using result cache", slog.String("dir", c.Dir()))
		a.UseCache(c)
	}

	result, err := a.AnalyzePaths(ctx, args)
	if err != nil {
		return err
	}
	if err := emit(cmd.OutOrStdout(), cfg, result, colors); err != nil {
		return err
	}

	if watchFlag {
		return watch(ctx, cmd.OutOrStdout(), cfg, a, args, colors, logger)
	}

	if result.Flagged > 0 {
		return &exitError{code: exitFlagged}
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = formatFlag
	}
	if flags.Changed("output") {
		cfg.Output.OutputFile = outputFlag
	}
	if flags.Changed("verbose") {
		cfg.Output.Verbose = verboseFlag
	}
	if noColorFlag {
		cfg.Output.Colors = false
	}
	if flags.Changed("jobs") && jobsFlag > 0 {
		cfg.Analysis.MaxWorkers = jobsFlag
	}
	if cacheFlag {
		cfg.Analysis.Cache = true
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func openCache(dir string) (*cache.DiskCache, error) {
	c, err := cache.Open(dir)
	if err != nil {
		return nil, err
	}
	if clearCacheFlag {
		if err := c.DropAll(); err != nil {
			return nil, fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return c, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// emit writes the report to the configured output file or to w
func emit(w io.Writer, cfg *config.Config, result *analyzer.Result, colors bool) error {
	if cfg.Output.OutputFile == "" {
		return analyzer.WriteReport(w, result, cfg.Output.Format, colors)
	}

	var buf bytes.Buffer
	if err := analyzer.WriteReport(&buf, result, cfg.Output.Format, false); err != nil {
		return err
	}
	if err := writeReportToFile(buf.Bytes(), cfg.Output.OutputFile); err != nil {
		return fmt.Errorf("failed to write report to file: %w", err)
	}
	color.Green("Report saved to: %s\n", cfg.Output.OutputFile)
	return nil
}

func writeReportToFile(report []byte, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(filePath, report, 0644)
}

// watch re-analyzes changed files until ctx is cancelled
func watch(ctx context.Context, w io.Writer, cfg *config.Config, a *analyzer.Analyzer, paths []string, colors bool, logger *slog.Logger) error {
	fw, err := watcher.NewFileWatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	err = fw.Watch(paths, func(changed []string) error {
		var present []string
		for _, path := range changed {
			if _, err := os.Stat(path); err == nil {
				present = append(present, path)
			}
		}
		if len(present) == 0 {
			return nil
		}
		color.Cyan("Re-analyzing %d changed files...\n", len(present))
		result, err := a.AnalyzeFiles(ctx, present)
		if err != nil {
			return err
		}
		return emit(w, cfg, result, colors)
	})
	if err != nil {
		return err
	}

	color.Cyan("Watching %d directories, press Ctrl+C to stop\n", len(fw.GetWatchedPaths()))
	<-ctx.Done()
	return nil
}

func generateConfig() error {
	configPath := config.FileNames[0]
	if configFlag != "" {
		configPath = configFlag
	}
	if err := config.GenerateConfig(configPath); err != nil {
		return fmt.Errorf("failed to generate config file: %w", err)
	}
	color.Green("Generated sample configuration file: %s\n", configPath)
	color.Cyan("Run 'await-analysis --config=%s .' to use it\n", configPath)
	return nil
}
