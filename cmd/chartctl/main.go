package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"chartgpt-backend/internal/client"
	"chartgpt-backend/internal/logger"
	"chartgpt-backend/internal/models"
	"chartgpt-backend/internal/services"
)

type options struct {
	server   string
	apiKey   string
	out      string
	timeout  time.Duration
	logLevel string
}

var errNoChart = errors.New(models.GenericErrorMessage)

func main() {
	var opts options
	pflag.StringVar(&opts.server, "server", "http://localhost:8080", "ChartGPT server base URL")
	pflag.StringVar(&opts.apiKey, "api-key", os.Getenv("CHARTGPT_API_KEY"), "Your own model API key (env: CHARTGPT_API_KEY)")
	pflag.StringVarP(&opts.out, "out", "o", services.ExportFilename, "Where to write the PNG")
	pflag.DurationVar(&opts.timeout, "timeout", 0, "Round trip timeout, 0 for none")
	pflag.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: chartctl [flags] <description of your data>\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	text := strings.Join(pflag.Args(), " ")
	if strings.TrimSpace(text) == "" {
		stdin, err := readStdin(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		text = stdin
	}
	if strings.TrimSpace(text) == "" {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(opts.logLevel, false)
	defer log.Sync()

	if err := run(ctx, opts, text, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readStdin(f *os.File) (string, error) {
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(bufio.NewReader(f))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(b), nil
}

// run performs one round trip against the server's outbound endpoints and
// writes the chart to opts.out.
func run(ctx context.Context, opts options, text string, stdout io.Writer, log *zap.Logger) error {
	remote := client.New(opts.server, 0)
	sessions := services.NewSessionStore(time.Hour, log)
	orchestrator := services.NewOrchestrator(remote, remote, sessions, services.OrchestratorOptions{
		Timeout: opts.timeout,
	}, log)

	result := orchestrator.Run(ctx, "chartctl", models.ChartRequest{Text: text, APIKey: opts.apiKey})
	succeeded, ok := result.(models.Succeeded)
	if !ok {
		return errNoChart
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.out, err)
	}
	defer f.Close()

	if err := services.RenderChartPNG(f, succeeded.ChartType, succeeded.Data); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.out, err)
	}

	fmt.Fprintf(stdout, "%s chart with %d points written to %s\n", succeeded.ChartType, len(succeeded.Data), opts.out)
	return nil
}
