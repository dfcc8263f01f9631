// Command predict submits habit records to the sleep quality service from
// the terminal and drives synthetic load against it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/slumber/internal/client"
	"github.com/okian/slumber/internal/domain/quality"
	"github.com/okian/slumber/internal/loadgen"
	"github.com/okian/slumber/pkg/logger"
)

const (
	defaultBaseURL  = "http://localhost:9080"
	defaultTimeout  = 30 * time.Second
	defaultRequests = 1000
	defaultSeed     = 42
	workersPerCPU   = 2
)

// errPredictionFailed marks a submission that ended in the Failed state.
var errPredictionFailed = errors.New("prediction failed")

type rootOptions struct {
	baseURL  string
	timeout  time.Duration
	verbose  bool
	jsonLogs bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree writing results to out.
func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "predict",
		Short:        "Sleep quality prediction client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithJSON(opts.jsonLogs)); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.baseURL, "url", defaultBaseURL, "Base URL of the service")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "log-json", false, "Log as JSON lines")

	root.AddCommand(newSubmitCmd(opts), newLoadCmd(opts))
	return root
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	form := client.NewForm()
	var stress int
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one day of habits and print the predicted quality",
		Example: `  predict submit --sleep-duration 6.5 --bedtime 00:30 --caffeine High --stress-level 8
  predict submit --url http://localhost:8080 --mood Happy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form.SetStress(stress)
			c, err := client.New(client.WithBaseURL(opts.baseURL), client.WithTimeout(opts.timeout))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			done := form.Submission().Submit(cmd.Context(), c, form.Record())
			printView(out, client.Render(client.State{Phase: client.Loading}))

			state := <-done
			view := client.Render(state)
			printView(out, view)
			if view.Phase == client.Failed {
				return errPredictionFailed
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.SleepDuration, "sleep-duration", client.DefaultSleepDuration, "Sleep duration in hours")
	f.StringVar(&form.Bedtime, "bedtime", client.DefaultBedtime, "Bedtime (HH:MM)")
	f.StringVar(&form.WakeTime, "wake-time", client.DefaultWakeTime, "Wake time (HH:MM)")
	f.StringVar(&form.Caffeine, "caffeine", client.DefaultCaffeine, "Caffeine: None, Low, Moderate, High or servings")
	f.StringVar(&form.ExerciseDuration, "exercise-duration", client.DefaultExerciseDuration, "Exercise in minutes")
	f.StringVar(&form.ScreenTime, "screen-time", client.DefaultScreenTime, "Screen time before bed in minutes")
	f.IntVar(&stress, "stress-level", client.DefaultStressLevel, "Stress level (1-10)")
	f.StringVar(&form.Mood, "mood", client.DefaultMood, "Mood: Happy, Neutral, Sad or Anxious")
	f.StringVar(&form.Interruptions, "interruptions", client.DefaultInterruptions, "Sleep interruptions: Yes, No or a count")
	return cmd
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	cfg := &loadgen.Config{}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Submit synthetic habit records concurrently and report the quality distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BaseURL = opts.baseURL
			cfg.Timeout = opts.timeout
			stats, err := loadgen.Run(cmd.Context(), cfg)
			if stats != nil {
				printStats(cmd.OutOrStdout(), stats)
			}
			return err
		},
	}
	f := cmd.Flags()
	f.IntVarP(&cfg.Requests, "records", "n", defaultRequests, "Number of records to submit")
	f.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU()*workersPerCPU, "Number of concurrent workers")
	f.Uint64Var(&cfg.Seed, "seed", defaultSeed, "Generator seed")
	f.StringVarP(&cfg.OutputFile, "output", "o", "", "Write generated records to this JSON file")
	f.BoolVar(&cfg.SkipHealth, "skip-health", false, "Skip the /healthz check")
	return cmd
}

func printView(w io.Writer, v client.View) {
	switch v.Phase {
	case client.Idle:
		fmt.Fprintf(w, "%s %s\n%s\n", v.Icon, v.Title, v.Message)
	case client.Loading, client.Failed:
		fmt.Fprintln(w, v.Message)
	case client.Success:
		fmt.Fprintf(w, "%s\n%s %s [%s]\n", v.Message, v.Icon, v.Title, v.Class)
		fmt.Fprintln(w, client.TipsHeader)
		for _, tip := range v.Tips {
			fmt.Fprintf(w, "  - %s\n", tip)
		}
	}
}

func printStats(w io.Writer, s *loadgen.Stats) {
	var b strings.Builder
	fmt.Fprintf(&b, "submitted %d, succeeded %d, failed %d in %s (%.1f req/s)\n",
		s.Submitted, s.Succeeded, s.Failed(), s.Duration.Round(time.Millisecond), s.Throughput())
	for _, q := range quality.All() {
		fmt.Fprintf(&b, "  %-8s %d\n", q, s.ByQuality[q])
	}
	if s.Failed() > 0 {
		fmt.Fprintf(&b, "  transport %d, service %d, malformed %d, cancelled %d\n",
			s.TransportFailures, s.ServiceFailures, s.MalformedFailures, s.Cancelled)
	}
	_, _ = io.WriteString(w, b.String())
}
