package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/makeasinger/musicgen/internal/client"
	"github.com/makeasinger/musicgen/internal/config"
	"github.com/makeasinger/musicgen/internal/feature"
	"github.com/makeasinger/musicgen/internal/logging"
	"github.com/makeasinger/musicgen/internal/poller"
)

var globalFlags struct {
	server      string
	token       string
	apiKey      string
	baseURL     string
	inputFile   string
	outputFile  string
	logLevel    string
	maxAttempts int
	interval    time.Duration
	quiet       bool
}

var rootCmd = &cobra.Command{
	Use:   "sunoctl",
	Short: "Submit music generation tasks and wait for their results",
	Long: `Submit music generation tasks and wait for their results.

Every command validates its parameters, creates a remote task, polls its
status with a growing interval and prints the final result as JSON.

Parameters come from command flags, or from a JSON request file given
with -f (flags are then ignored).

Examples:
  sunoctl generate --prompt "calm piano"
  sunoctl lyrics --prompt "a song about rain" -o lyrics.json
  sunoctl --server http://localhost:8000 --token $TOKEN wav --task-id t1 --audio-id a1`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.server, "server", "", "base URL of a musicgen server; calls its /api/suno routes")
	pf.StringVar(&globalFlags.token, "token", "", "bearer token for --server")
	pf.StringVar(&globalFlags.apiKey, "api-key", "", "upstream API key (default $SUNO_API_KEY)")
	pf.StringVar(&globalFlags.baseURL, "base-url", "", "upstream API base URL (default $SUNO_BASE_URL)")
	pf.StringVarP(&globalFlags.inputFile, "file", "f", "", "JSON request file")
	pf.StringVarP(&globalFlags.outputFile, "output", "o", "", "write the result to this file instead of stdout")
	pf.StringVar(&globalFlags.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.IntVar(&globalFlags.maxAttempts, "max-attempts", poller.DefaultMaxAttempts, "maximum status checks, 0 for unbounded")
	pf.DurationVar(&globalFlags.interval, "interval", poller.DefaultInitialInterval, "initial delay between status checks")
	pf.BoolVarP(&globalFlags.quiet, "quiet", "q", false, "do not print progress")

	rootCmd.AddCommand(generateCmd, lyricsCmd, extendCmd, separateCmd, wavCmd, mp4Cmd)
}

// adapterConfig builds the adapter collaborators from the global flags.
func adapterConfig() (feature.Config, error) {
	logger := logging.New(globalFlags.logLevel)

	opts := poller.DefaultOptions()
	opts.MaxAttempts = globalFlags.maxAttempts
	if globalFlags.interval > 0 {
		opts.InitialInterval = globalFlags.interval
		if opts.MaxInterval < opts.InitialInterval {
			opts.MaxInterval = opts.InitialInterval
		}
	}
	opts.GrowthEvery = 0

	cfg := feature.Config{
		Poll:   &opts,
		Logger: logger,
	}

	if globalFlags.server != "" {
		cfg.Backend = client.NewProxyClient(globalFlags.server, globalFlags.token, logger)
		return cfg, nil
	}

	appCfg, err := config.Load()
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	suno := appCfg.Suno
	if globalFlags.apiKey != "" {
		suno.APIKey = globalFlags.apiKey
	}
	if globalFlags.baseURL != "" {
		suno.BaseURL = globalFlags.baseURL
	}
	sunoClient := client.NewSunoClient(&suno, logger)
	if !sunoClient.IsConfigured() {
		return cfg, fmt.Errorf("no upstream API key: set SUNO_API_KEY, pass --api-key or use --server")
	}
	cfg.Backend = sunoClient
	return cfg, nil
}

// loadParams fills params from the request file, if any.
func loadParams(params interface{}) (bool, error) {
	if globalFlags.inputFile == "" {
		return false, nil
	}
	data, err := os.ReadFile(globalFlags.inputFile)
	if err != nil {
		return false, fmt.Errorf("failed to read file %s: %w", globalFlags.inputFile, err)
	}
	if err := json.Unmarshal(data, params); err != nil {
		return false, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return true, nil
}

// follow submits params through a and blocks until the task settles,
// printing progress to stderr and the result to stdout or the output file.
func follow[P, R any](cmd *cobra.Command, a *feature.Adapter[P, R], params P) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progress := cmd.ErrOrStderr()
	if globalFlags.quiet {
		progress = io.Discard
	}
	var (
		mu           sync.Mutex
		lastAttempts = -1
	)
	unsubscribe := a.OnChange(func(st feature.State[R]) {
		mu.Lock()
		defer mu.Unlock()
		if st.Attempts == lastAttempts || st.TaskID == "" {
			return
		}
		lastAttempts = st.Attempts
		printProgress(progress, st)
	})
	defer unsubscribe()

	if err := a.Submit(ctx, params); err != nil {
		return err
	}

	st, err := a.Wait(ctx)
	if err != nil {
		a.Stop()
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted after %d status checks", st.Attempts)
		}
		return err
	}
	if st.IsError {
		if st.Error != nil {
			return st.Error
		}
		return fmt.Errorf("task %s failed", st.TaskID)
	}
	if !st.IsSuccess {
		return fmt.Errorf("task %s ended without a result", st.TaskID)
	}

	fmt.Fprintf(progress, "done: task %s after %d checks in %s\n", st.TaskID, st.Attempts, st.Elapsed.Round(time.Millisecond))
	return outputResult(cmd.OutOrStdout(), st.Data)
}

func printProgress[R any](w io.Writer, st feature.State[R]) {
	status := st.Progress.Status
	if status == "" {
		status = "PENDING"
	}
	line := fmt.Sprintf("task %s: %s (check %d, %s)", st.TaskID, status, st.Attempts, st.Elapsed.Round(100*time.Millisecond))
	if st.Progress.FirstGenerated {
		line += " first track ready"
	} else if st.Progress.TextGenerated {
		line += " lyrics ready"
	}
	fmt.Fprintln(w, line)
}

func outputResult(stdout io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')

	if globalFlags.outputFile == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(globalFlags.outputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", globalFlags.outputFile, err)
	}
	return nil
}
