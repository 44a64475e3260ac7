// Command checkonce checks a channel list file once and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kapu/multistream-checker-go/internal/adapter"
	"github.com/kapu/multistream-checker-go/internal/app"
	"github.com/kapu/multistream-checker-go/internal/config"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/util"
	"go.uber.org/zap"
)

// logSink reports progress through the logger; the table is printed once at the end.
type logSink struct {
	logger *zap.Logger
}

func (s logSink) Render([]domain.MonitoredEntry) {}

func (s logSink) NotifyMessage(text string, severity domain.Severity, _ time.Duration) {
	s.logger.Info(text, zap.String("severity", string(severity)))
}

func (s logSink) SetLoading(bool) {}

func (s logSink) SetLastChecked(time.Time) {}

func main() {
	file := flag.String("file", "channels.txt", "channel list, one \"nickname, url\" per line")
	liveOnly := flag.Bool("live", false, "print only live channels")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	d := container.NewDispatcher(logSink{logger: logger}, false)
	d.Start(ctx)
	d.LoadFromText(ctx, string(data))
	d.Stop()

	formatter := adapter.NewResponseFormatter(nil)
	entries := d.Entries()
	if *liveOnly {
		fmt.Println(formatter.FormatLive(entries))
	} else {
		fmt.Println(formatter.FormatEntries(entries))
	}
	fmt.Println(formatter.FormatQuota(container.Quota.Usage(ctx)))
}
