package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/satyagyan/internal/config"
	"github.com/nao1215/satyagyan/internal/feed"
	"github.com/nao1215/satyagyan/internal/model"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fact-check new items of an RSS or Atom feed on a schedule",
		Long: `Watch polls a feed and checks every item it has not seen before.

The feed is polled once at startup and then on the schedule, which is a
standard five-field cron expression or a descriptor such as "@hourly" or
"@every 30m". Items whose check failed are retried on the next poll.
Every result is stored in history and printed as it finishes.

Stop watching with Ctrl+C.

Examples:
  # Check new items of a news feed every hour
  satyagyan watch --feed https://example.com/rss

  # Poll every 15 minutes and ignore the items already published
  satyagyan watch --feed https://example.com/rss --schedule "*/15 * * * *" --skip-existing`,
		RunE: runWatch,
	}

	addEngineFlags(cmd)
	flags := cmd.Flags()
	flags.String("feed", "", "RSS or Atom feed URL to watch")
	flags.String("schedule", config.DefaultWatchSchedule, "Cron schedule for polling the feed")
	flags.Bool("skip-existing", false, "Do not check the items present at startup")
	flags.Int("max-items", feed.DefaultMaxItems, "Maximum items read from the feed per poll")
	flags.BoolP("json", "j", false, "Print each report as JSON")
	flags.BoolP("markdown", "m", false, "Print each report as Markdown")

	return cmd
}

// runWatch executes the watch command.
func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	flags := cmd.Flags()
	feedURL := stringFlag(flags, "feed")
	schedule := stringFlag(flags, "schedule")
	skipExisting, _ := flags.GetBool("skip-existing")
	maxItems, _ := flags.GetInt("max-items")

	logger := setupLogger(cfg.Verbose)

	a, err := newApp(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	writer := newReportWriter(cfg, cmd.OutOrStdout())
	loader := feed.NewLoader(a.httpClient, feed.WithUserAgent(cfg.UserAgent), feed.WithMaxItems(maxItems))

	w, err := feed.NewWatcher(feedURL, a.checker,
		feed.WithLoader(loader),
		feed.WithSchedule(schedule),
		feed.WithSkipExisting(skipExisting),
		feed.WithWatcherLogger(logger),
		feed.WithReportHandler(func(r *model.FactCheckReport) {
			if _, err := writer.Write(r); err != nil {
				logger.Warn("failed to write report", "id", r.ID, "error", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (%s). Press Ctrl+C to stop.\n", feedURL, schedule)
	if err := w.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Stopped watching after %d item(s).\n", w.Seen())
	return nil
}
