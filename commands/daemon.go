package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"ev-subsidy-scraper/utils"
)

var (
	daemonSchedule string
	daemonNow      bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the full crawl and publish on a cron schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule := daemonSchedule
		if schedule == "" {
			schedule = current.cfg.DailySchedule
		}
		return current.runDaemon(cmd.Context(), schedule, daemonNow)
	},
}

func init() {
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", "", `cron spec, e.g. "0 2 * * *" (default DAILY_SCHEDULE)`)
	daemonCmd.Flags().BoolVar(&daemonNow, "now", false, "run once immediately before waiting for the schedule")
	rootCmd.AddCommand(daemonCmd)
}

// cronLogger routes cron's key/value logs to the leveled logger
type cronLogger struct {
	logger *utils.Logger
}

func (l cronLogger) formatParams(keysAndValues []interface{}) string {
	params := make([]string, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return strings.Join(params, ", ")
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: %s %s", msg, l.formatParams(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: %s: %v %s", msg, err, l.formatParams(keysAndValues))
}

// dailyJob is one scheduled run: a full crawl followed by publishing what it wrote
func (a *app) dailyJob(ctx context.Context) {
	a.logger.Info("Scheduled run starting")
	files, err := a.runCrawl(ctx, crawlParams{Full: true})
	if err != nil {
		a.logger.Error("Scheduled crawl failed: %v", err)
	}
	if len(files) == 0 {
		return
	}

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		a.logger.Error("Publisher unavailable: %v", err)
		return
	}
	if publisher == nil {
		return
	}
	if _, err := publisher.Publish(ctx, files); err != nil {
		a.logger.Error("Publishing failed: %v", err)
	}
}

func (a *app) runDaemon(ctx context.Context, schedule string, now bool) error {
	logger := cronLogger{logger: a.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	id, err := c.AddFunc(schedule, func() { a.dailyJob(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	if now {
		a.dailyJob(ctx)
	}

	c.Start()
	a.logger.Info("Daemon started, next run at %s", c.Entry(id).Next.Format("2006-01-02 15:04"))

	<-ctx.Done()
	a.logger.Info("Shutting down, waiting for a running job to finish")
	<-c.Stop().Done()
	return nil
}
