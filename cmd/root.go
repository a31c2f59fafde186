package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spamid/spam-identifier/pkg/config"
	"github.com/spamid/spam-identifier/pkg/corpus"
	"github.com/spamid/spam-identifier/pkg/filter"
	"github.com/spamid/spam-identifier/pkg/logging"
	"github.com/spamid/spam-identifier/pkg/profiler"
	"github.com/spamid/spam-identifier/pkg/results"
	"github.com/spf13/cobra"
)

// ErrInvalidArguments is returned when the classification arguments are missing or malformed
var ErrInvalidArguments = errors.New("Invalid arguments count/values.")

// errExecution hides the failure details from the user; they are logged instead
var errExecution = errors.New("Unexpected error occurred during program execution.")

const requiredArgs = 7

var (
	configFile string
	logLevel   string
	logFormat  string
	profile    bool

	cfg       *config.Config
	logger    zerolog.Logger
	logOutput io.WriteCloser
	prof      *profiler.Profiler
)

var rootCmd = &cobra.Command{
	Use:   "spamid <spam> <spam-cnt> <ham> <ham-cnt> <test> <test-cnt> <out-file>",
	Short: "Spam/Ham naive Bayes classifier",
	Long: `spamid learns numbered spam and ham documents, classifies numbered test
documents and writes one "<file>\t<label>" line per test document.

Documents are read from the data directory ("data" by default):
  spamid spam 1234 ham 1234 test 12 result.txt
learns data/spam1.txt .. data/spam1234.txt and data/ham1.txt .. data/ham1234.txt,
then classifies data/test1.txt .. data/test12.txt into result.txt.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format = logFormat
		}

		logOutput, err = logging.Open(cfg.Logging.File)
		if err != nil {
			return err
		}
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: logOutput,
			RunID:  logging.NewRunID(),
		})
		logger = logging.WithComponent(cmd.Name())

		if profile {
			prof = profiler.New()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if prof != nil {
			fmt.Println()
			prof.WriteReport(os.Stdout)
		}
		if logOutput != nil {
			return logOutput.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := parseJob(args)
		if err != nil {
			return err
		}

		if err := runJob(cmd.Context(), job); err != nil {
			logger.Error().Err(err).Msg("classification run failed")
			return errExecution
		}
		return nil
	},
}

// job is one classification run described by the positional arguments
type job struct {
	spam, ham, test corpus.Pattern
	output          string
}

func parseJob(args []string) (job, error) {
	if len(args) != requiredArgs {
		return job{}, ErrInvalidArguments
	}

	counts := make([]int, 0, 3)
	for _, s := range []string{args[1], args[3], args[5]} {
		n, err := corpus.ParseCount(s)
		if err != nil {
			return job{}, ErrInvalidArguments
		}
		counts = append(counts, n)
	}

	return job{
		spam:   corpus.Pattern{Prefix: args[0], Count: counts[0]},
		ham:    corpus.Pattern{Prefix: args[2], Count: counts[1]},
		test:   corpus.Pattern{Prefix: args[4], Count: counts[2]},
		output: args[6],
	}, nil
}

func runJob(ctx context.Context, j job) error {
	spamFilter, err := filter.NewSpamFilterWithConfig(cfg,
		filter.WithLogger(logger),
		filter.WithProfiler(prof),
	)
	if err != nil {
		return err
	}
	defer spamFilter.Close()

	if err := spamFilter.Train(j.spam.Prefix, j.spam.Count, j.ham.Prefix, j.ham.Count); err != nil {
		return err
	}

	sink, err := openSinks(ctx, j.output)
	if err != nil {
		return err
	}

	res, err := spamFilter.ProcessPattern(ctx, j.test.Prefix, j.test.Count, sink)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	logger.Info().
		Int("total", res.Total).
		Interface("labels", res.ByLabel).
		Str("output", j.output).
		Msg("classification complete")

	return nil
}

// openSinks opens the result file and, when enabled, the Redis hash
func openSinks(ctx context.Context, output string) (results.Sink, error) {
	file, err := results.CreateFile(output)
	if err != nil {
		return nil, err
	}

	redisCfg := cfg.Results.Redis
	if !redisCfg.Enabled {
		return file, nil
	}

	redisSink, err := results.NewRedisSink(ctx, results.RedisConfig{
		URL: redisCfg.URL,
		Key: redisCfg.Key,
		TTL: secondsToDuration(redisCfg.TTLSeconds),
	})
	if err != nil {
		file.Close()
		return nil, err
	}
	return results.Multi{file, redisSink}, nil
}

// PrintManual writes the usage manual
func PrintManual(w io.Writer) {
	name := filepath.Base(os.Args[0])
	indent := func(lines ...string) {
		for _, l := range lines {
			fmt.Fprintf(w, "\t%s\n", l)
		}
	}

	fmt.Fprintln(w, "Spam/Ham Naive Bayes Classifier")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	indent(name + " <spam> <spam-cnt> <ham> <ham-cnt> <test> <test-cnt> <out-file>")
	fmt.Fprintln(w)
	indent(
		"<spam>     - Training spam files pattern.",
		"<spam-cnt> - Training spam files count.",
		"<ham>      - Training ham files pattern.",
		"<ham-cnt>  - Training ham files count.",
		"<test>     - Tested files pattern.",
		"<test-cnt> - Tested files count.",
		"<out-file> - Output file name.",
	)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	indent(name + " spam 1234 ham 1234 test 12 result.txt")
	fmt.Fprintln(w)
	indent(
		`Classifier learns 1234 spam files ("spam1.txt" ... "spam1234.txt").`,
		`Classifier learns 1234 ham files ("ham1.txt" ... "ham1234.txt").`,
		`Classifier classifies 12 tested files ("test1.txt" ... "test12.txt").`,
		`Output is printed to file "result.txt".`,
	)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Other commands: %s\n", strings.Join(commandNames(), ", "))
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if c.IsAvailableCommand() {
			names = append(names, c.Name())
		}
	}
	return names
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (json or console)")
	rootCmd.PersistentFlags().BoolVar(&profile, "profile", false, "Print per-phase timings")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(milterCmd)
	rootCmd.AddCommand(benchmarkCmd)
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
