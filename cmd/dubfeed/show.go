package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Guilhem-Bonnet/dubfeed/internal/domain"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Affiche le feed persisté",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, "dubfeed")
			if err != nil {
				return err
			}
			st, err := ctx.openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			feed, err := st.feed.LoadFeed(cmd.Context())
			if err != nil {
				return fmt.Errorf("load feed: %w", err)
			}
			schedule, err := st.feed.LoadSchedule(cmd.Context())
			if err != nil {
				return fmt.Errorf("load schedule: %w", err)
			}

			if len(feed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Feed is empty")
				return nil
			}
			headers, rows, aligns := feedTable(feed, schedule, limit)
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			if limit > 0 && len(feed) > limit {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d episodes\n", limit, len(feed))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of episodes to display (0 = all)")
	return cmd
}

// feedTable construit les lignes du tableau; les titres viennent du dernier snapshot.
func feedTable(feed []domain.FeedEpisode, schedule []domain.ScheduleEntry, limit int) ([]string, [][]string, []columnAlignment) {
	titles := make(map[int]string, len(schedule))
	for _, e := range schedule {
		titles[e.SeriesID] = e.Title
	}

	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}
	rows := make([][]string, 0, len(feed))
	for _, ep := range feed {
		title := titles[ep.SeriesID]
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			ep.AiredAt.UTC().Format(time.DateTime),
			strconv.Itoa(ep.SeriesID),
			title,
			strconv.Itoa(ep.EpisodeNumber),
		})
	}
	headers := []string{"Aired (UTC)", "Series", "Title", "Episode"}
	return headers, rows, []columnAlignment{alignLeft, alignRight, alignLeft, alignRight}
}
