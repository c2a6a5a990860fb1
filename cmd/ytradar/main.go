package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ytradar",
		Short:         "Track topic and category momentum across YouTube trending snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(ingestCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(snapshotsCmd())
	root.AddCommand(categoriesCmd())
	root.AddCommand(topicsCmd())
	root.AddCommand(videosCmd())
	root.AddCommand(trendingCmd())
	root.AddCommand(growthCmd())
	root.AddCommand(categoryDiffCmd())
	root.AddCommand(topicDiffCmd())
	root.AddCommand(topicGrowthCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

// queryOpts are the flags shared by every metric command.
type queryOpts struct {
	jsonOutput      bool
	csvDir          string
	since           string
	freshHours      float64
	minVideosPerTag int
}

func addQueryFlags(cmd *cobra.Command, o *queryOpts) {
	cmd.Flags().BoolVar(&o.jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&o.csvDir, "csv", "", "read snapshots from a CSV directory instead of the database")
	cmd.Flags().StringVar(&o.since, "since", "", "ignore snapshots before this timestamp")
	cmd.Flags().Float64Var(&o.freshHours, "fresh-hours", 0, "freshness window in hours (default: from config)")
	cmd.Flags().IntVar(&o.minVideosPerTag, "min-videos", 0, "minimum videos per topic (default: from config)")
}

// growthOpts are the filters of the growth commands.
type growthOpts struct {
	ts1, ts2   string
	categories []string
	shorts     string
	minDelta   int64
	limit      int
}

func addGrowthFlags(cmd *cobra.Command, o *growthOpts, defaultLimit int) {
	addPairFlags(cmd, &o.ts1, &o.ts2)
	cmd.Flags().StringSliceVar(&o.categories, "category", nil, "only items in these categories at the later snapshot")
	cmd.Flags().StringVar(&o.shorts, "shorts", "all", "all, shorts or long")
	cmd.Flags().Int64Var(&o.minDelta, "min-delta", 0, "minimum views delta")
	cmd.Flags().IntVar(&o.limit, "limit", defaultLimit, "max rows to show (0 for all)")
}

func addPairFlags(cmd *cobra.Command, ts1, ts2 *string) {
	cmd.Flags().StringVar(ts1, "ts1", "", "earlier snapshot (default: previous)")
	cmd.Flags().StringVar(ts2, "ts2", "", "later snapshot (default: latest)")
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load a directory of ytcat_*.csv snapshot files into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runIngest(dir)
		},
	}
	return cmd
}

func collectCmd() *cobra.Command {
	var (
		sources []string
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Capture one snapshot from the configured collectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(sources, outDir)
		},
	}

	cmd.Flags().StringSliceVar(&sources, "source", nil, "specific sources to collect (youtube, feed)")
	cmd.Flags().StringVar(&outDir, "out", "", "also write the snapshot as CSV files to this directory")
	return cmd
}

func snapshotsCmd() *cobra.Command {
	var o queryOpts

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List loaded snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(o)
		},
	}

	addQueryFlags(cmd, &o)
	return cmd
}

func categoriesCmd() *cobra.Command {
	var (
		o  queryOpts
		ts string
	)

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show category metrics for one snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategories(o, ts)
		},
	}

	addQueryFlags(cmd, &o)
	cmd.Flags().StringVar(&ts, "ts", "", "snapshot timestamp (default: latest)")
	return cmd
}

func topicsCmd() *cobra.Command {
	var (
		o        queryOpts
		ts       string
		category string
		status   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Show classified topics of one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopics(o, ts, category, status, limit)
		},
	}

	addQueryFlags(cmd, &o)
	cmd.Flags().StringVar(&ts, "ts", "", "snapshot timestamp (default: latest)")
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().StringVar(&status, "status", "", "only topics with this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "max topics to show (0 for all)")
	cmd.MarkFlagRequired("category")
	return cmd
}

func videosCmd() *cobra.Command {
	var (
		o        queryOpts
		ts       string
		category string
		shorts   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Show the fastest videos of one category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVideos(o, ts, category, shorts, limit)
		},
	}

	addQueryFlags(cmd, &o)
	cmd.Flags().StringVar(&ts, "ts", "", "snapshot timestamp (default: latest)")
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.Flags().StringVar(&shorts, "shorts", "all", "all, shorts or long")
	cmd.Flags().IntVar(&limit, "limit", 50, "max videos to show (0 for all)")
	cmd.MarkFlagRequired("category")
	return cmd
}

func trendingCmd() *cobra.Command {
	var (
		o  queryOpts
		ts string
	)

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show Trending topics of every category",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrending(o, ts)
		},
	}

	addQueryFlags(cmd, &o)
	cmd.Flags().StringVar(&ts, "ts", "", "snapshot timestamp (default: latest)")
	return cmd
}

func growthCmd() *cobra.Command {
	var (
		o queryOpts
		g growthOpts
	)

	cmd := &cobra.Command{
		Use:   "growth",
		Short: "Show per-video view growth between two snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrowth(o, g)
		},
	}

	addQueryFlags(cmd, &o)
	addGrowthFlags(cmd, &g, 50)
	return cmd
}

func categoryDiffCmd() *cobra.Command {
	var (
		o        queryOpts
		ts1, ts2 string
	)

	cmd := &cobra.Command{
		Use:   "category-diff",
		Short: "Compare category metrics between two snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategoryDiff(o, ts1, ts2)
		},
	}

	addQueryFlags(cmd, &o)
	addPairFlags(cmd, &ts1, &ts2)
	return cmd
}

func topicDiffCmd() *cobra.Command {
	var (
		o        queryOpts
		ts1, ts2 string
		category string
	)

	cmd := &cobra.Command{
		Use:   "topic-diff",
		Short: "Compare topic metrics of one category between two snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicDiff(o, ts1, ts2, category)
		},
	}

	addQueryFlags(cmd, &o)
	addPairFlags(cmd, &ts1, &ts2)
	cmd.Flags().StringVar(&category, "category", "", "category id")
	cmd.MarkFlagRequired("category")
	return cmd
}

func topicGrowthCmd() *cobra.Command {
	var (
		o queryOpts
		g growthOpts
	)

	cmd := &cobra.Command{
		Use:   "topic-growth",
		Short: "Attribute view growth between two snapshots to topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicGrowth(o, g)
		},
	}

	addQueryFlags(cmd, &o)
	addGrowthFlags(cmd, &g, 30)
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long: `Start the HTTP API over the stored snapshots. Snapshots written by other
processes (ingest, collect) are picked up every schedule.collect_interval.
POST /api/v1/collect captures and reloads immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with capture scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
