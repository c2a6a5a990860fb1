package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/internal/config"
	"github.com/elonfeng/ytradar/internal/logging"
	"github.com/elonfeng/ytradar/internal/scheduler"
	"github.com/elonfeng/ytradar/internal/store"
	"github.com/elonfeng/ytradar/pkg/alert"
	"github.com/elonfeng/ytradar/pkg/metrics"
	"github.com/elonfeng/ytradar/pkg/radar"
	"github.com/elonfeng/ytradar/pkg/server"
	"github.com/elonfeng/ytradar/pkg/snapshot"
	"github.com/elonfeng/ytradar/pkg/source"
	"github.com/elonfeng/ytradar/pkg/topic"
)

const tsLayout = "2006-01-02 15:04:05"

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// setup loads the configuration and creates the logger. The returned func
// closes the log file.
func setup() (*config.Config, *log.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, func() { closer.Close() }, nil
}

func openStore(cfg *config.Config, logger *log.Logger) (*store.SQLStore, error) {
	db, err := store.New(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db.WithLogger(logger), nil
}

func buildNormalizer(cfg *config.Config) *topic.Normalizer {
	return topic.NewNormalizer(cfg.Filter.ExtraStopTags, cfg.Filter.ExtraStopSubstrings)
}

func buildParams(cfg *config.Config, o queryOpts) radar.Params {
	p := radar.Params{
		FreshHours:      cfg.Metrics.FreshHours,
		MinVideosPerTag: cfg.Metrics.MinVideosPerTag,
	}
	if o.freshHours > 0 {
		p.FreshHours = o.freshHours
	}
	if o.minVideosPerTag > 0 {
		p.MinVideosPerTag = o.minVideosPerTag
	}
	return p
}

func buildSources(cfg *config.Config, logger *log.Logger) []source.Source {
	var sources []source.Source

	if yt := cfg.Sources.YouTube; yt.Enabled {
		sources = append(sources, source.NewYouTube(source.YouTubeOptions{
			APIKey:            yt.APIKey,
			BaseURL:           yt.BaseURL,
			Region:            yt.Region,
			Categories:        yt.Categories,
			PerCategory:       yt.PerCategory,
			RequestsPerSecond: yt.RequestsPerSecond,
		}, logger))
	}
	if cfg.Sources.Feeds.Enabled {
		feeds := make([]source.ChannelFeed, len(cfg.Sources.Feeds.Channels))
		for i, f := range cfg.Sources.Feeds.Channels {
			feeds[i] = source.ChannelFeed{URL: f.URL, CategoryID: f.CategoryID, CategoryName: f.CategoryName}
		}
		sources = append(sources, source.NewFeed(feeds, logger))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// loadRadar builds the query facade from the database or a CSV directory.
func loadRadar(o queryOpts) (*radar.Radar, error) {
	cfg, logger, done, err := setup()
	if err != nil {
		return nil, err
	}
	defer done()

	since, err := radar.ParseTimestamp(o.since)
	if err != nil {
		return nil, err
	}

	var records []snapshot.ItemRecord
	if o.csvDir != "" {
		all, err := snapshot.LoadDir(o.csvDir, logger)
		if err != nil {
			return nil, err
		}
		for _, r := range all {
			if !r.SnapshotTS.Before(since) {
				records = append(records, r)
			}
		}
	} else {
		db, err := openStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		if records, err = db.LoadRecords(context.Background(), since); err != nil {
			return nil, err
		}
	}

	logger.Debug("records loaded", "count", len(records))
	table := snapshot.NewTableWith(records, buildNormalizer(cfg))
	return radar.New(table, buildParams(cfg, o)), nil
}

func runIngest(dir string) error {
	cfg, logger, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if dir == "" {
		dir = cfg.DataDir
	}
	records, err := snapshot.LoadDir(dir, logger)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no snapshot files found in %s", dir)
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveSnapshot(context.Background(), records); err != nil {
		return err
	}

	table := snapshot.NewTable(records)
	fmt.Fprintf(os.Stderr, "ingested %d records from %d snapshots in %s\n",
		len(records), len(table.Timestamps()), dir)
	return nil
}

func runCollect(filterSources []string, outDir string) error {
	cfg, logger, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	allSources := buildSources(cfg, logger)

	var sources []source.Source
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		for _, s := range allSources {
			if wanted[string(s.Name())] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching enabled sources for: %s", strings.Join(filterSources, ", "))
		}
	} else {
		sources = allSources
	}
	if len(sources) == 0 {
		return fmt.Errorf("no sources enabled (see sources.youtube and sources.feeds in the config)")
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	at := time.Now().UTC().Truncate(time.Second)
	records := source.CollectAll(ctx, sources, at, logger)
	if len(records) == 0 {
		return fmt.Errorf("no items collected")
	}
	if err := db.SaveSnapshot(ctx, records); err != nil {
		return err
	}

	if outDir != "" {
		paths, err := snapshot.WriteDir(outDir, records)
		if err != nil {
			return err
		}
		logger.Info("wrote snapshot files", "dir", outDir, "files", len(paths))
	}

	fmt.Fprintf(os.Stderr, "captured %d items at %s from %d sources\n", len(records), at.Format(tsLayout), len(sources))
	return nil
}

func runSnapshots(o queryOpts) error {
	snaps, err := listSnapshots(o)
	if err != nil {
		return err
	}

	if o.jsonOutput {
		return printJSON(snaps)
	}
	if len(snaps) == 0 {
		fmt.Println("no snapshots found (try: ytradar ingest or ytradar collect)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SNAPSHOT\tVIDEOS\tCATEGORIES")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.SnapshotTS.Format(tsLayout), s.Videos, s.Categories)
	}
	return w.Flush()
}

// listSnapshots reads the snapshot summary from the store without loading
// records, unless a CSV directory or a since bound is given.
func listSnapshots(o queryOpts) ([]snapshot.Summary, error) {
	if o.csvDir != "" || o.since != "" {
		rd, err := loadRadar(o)
		if err != nil {
			return nil, err
		}
		return rd.Snapshots(), nil
	}

	cfg, logger, done, err := setup()
	if err != nil {
		return nil, err
	}
	defer done()

	db, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.ListSnapshots(context.Background())
}

func runCategories(o queryOpts, tsArg string) error {
	rd, ts, err := resolveOne(o, tsArg)
	if err != nil {
		return err
	}

	rows := rd.Categories(ts)
	if o.jsonOutput {
		return printJSON(rows)
	}

	fmt.Printf("snapshot %s\n\n", ts.Format(tsLayout))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tVIDEOS\tFRESH\tVOLUME\tVOL%\tVELOCITY\tVEL%\tFRESH VEL\tFRESH VEL%")
	for _, c := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.1f\t%.0f\t%.1f\t%.0f\t%.1f\n",
			c.CategoryID, c.CategoryName, c.VideosCnt, c.FreshVideos, c.Volume, c.VolumeShare*100,
			c.VelocityTotal, c.VelocityShare*100, c.FreshVelocity, c.FreshVelocityShare*100)
	}
	return w.Flush()
}

func runTopics(o queryOpts, tsArg, category, status string, limit int) error {
	rd, ts, err := resolveOne(o, tsArg)
	if err != nil {
		return err
	}

	rows := rd.Topics(ts, category)
	if status != "" {
		var filtered []metrics.TopicMetrics
		for _, t := range rows {
			if strings.EqualFold(string(t.Status), status) {
				filtered = append(filtered, t)
			}
		}
		rows = filtered
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if o.jsonOutput {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Printf("no topics with at least %d videos in category %s\n", rd.Params().MinVideosPerTag, category)
		return nil
	}

	if th, ok := rd.Thresholds(ts, category); ok {
		fmt.Printf("snapshot %s, category %s: p90 velocity %.0f, p75 velocity %.0f, p75 volume %.0f\n\n",
			ts.Format(tsLayout), category, th.P90Velocity, th.P75Velocity, th.P75Volume)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tSTATUS\tVIDEOS\tFRESH\tVOLUME\tVELOCITY\tFRESHNESS")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.0f\t%.2f\n",
			t.Tag, t.Status, t.VideosCnt, t.FreshVideos, t.Volume, t.Velocity, t.Freshness)
	}
	return w.Flush()
}

func runVideos(o queryOpts, tsArg, category, shorts string, limit int) error {
	rd, ts, err := resolveOne(o, tsArg)
	if err != nil {
		return err
	}

	rows := rd.Videos(ts, category, snapshot.ParseShortsFilter(shorts), limit)
	if o.jsonOutput {
		return printJSON(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIEWS/H\tVIEWS\tAGE(H)\tSHORT\tCHANNEL\tTITLE")
	for _, v := range rows {
		age := "-"
		if v.AgeHours != nil {
			age = fmt.Sprintf("%.1f", *v.AgeHours)
		}
		fmt.Fprintf(w, "%.0f\t%d\t%s\t%t\t%s\t%s\n",
			v.ViewsPerHour, v.Views, age, v.IsShort, v.ChannelTitle, truncate(v.Title, 60))
	}
	return w.Flush()
}

func runTrending(o queryOpts, tsArg string) error {
	rd, ts, err := resolveOne(o, tsArg)
	if err != nil {
		return err
	}

	rows := rd.TrendingTopics(ts)
	if o.jsonOutput {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("no trending topics")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOPIC\tVIDEOS\tVELOCITY\tFRESHNESS")
	for _, ct := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f\t%.2f\n",
			ct.CategoryName, ct.Topic.Tag, ct.Topic.VideosCnt, ct.Topic.Velocity, ct.Topic.Freshness)
	}
	return w.Flush()
}

func runGrowth(o queryOpts, g growthOpts) error {
	rd, ts1, ts2, err := resolvePair(o, g.ts1, g.ts2)
	if err != nil {
		return err
	}

	rows := rd.Growth(ts1, ts2, g.filter())
	stats := metrics.SummarizeGrowth(rows)
	if g.limit > 0 && len(rows) > g.limit {
		rows = rows[:g.limit]
	}
	if o.jsonOutput {
		return printJSON(map[string]any{"stats": stats, "data": rows})
	}

	fmt.Printf("%s -> %s: %d videos, mean delta %.0f, median delta %.0f\n\n",
		ts1.Format(tsLayout), ts2.Format(tsLayout), stats.Videos, stats.MeanViewsDelta, stats.MedianViewsDelta)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIEWS/H\tDELTA\tVIEWS T1\tVIEWS T2\tCATEGORY\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(w, "%.0f\t%d\t%d\t%d\t%s\t%s\n",
			r.ViewsPerHourBetween, r.ViewsDelta, r.T1.Views, r.T2.Views, r.T2.CategoryName, truncate(r.T2.Title, 60))
	}
	return w.Flush()
}

func runCategoryDiff(o queryOpts, ts1Arg, ts2Arg string) error {
	rd, ts1, ts2, err := resolvePair(o, ts1Arg, ts2Arg)
	if err != nil {
		return err
	}

	rows := rd.CategoryDiff(ts1, ts2)
	if o.jsonOutput {
		return printJSON(rows)
	}

	fmt.Printf("%s -> %s\n\n", ts1.Format(tsLayout), ts2.Format(tsLayout))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tVIDEOS T1\tVIDEOS T2\tVOLUME Δ\tVELOCITY Δ\tFRESH VEL Δ\tFRESHNESS Δ")
	for _, c := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%+d\t%+.0f\t%+.0f\t%+.2f\n",
			c.CategoryID, c.CategoryName, c.VideosCntT1, c.VideosCntT2,
			c.VolumeDelta, c.VelocityTotalDelta, c.FreshVelocityDelta, c.FreshnessDelta)
	}
	return w.Flush()
}

func runTopicDiff(o queryOpts, ts1Arg, ts2Arg, category string) error {
	rd, ts1, ts2, err := resolvePair(o, ts1Arg, ts2Arg)
	if err != nil {
		return err
	}

	rows := rd.TopicDiff(ts1, ts2, category)
	if o.jsonOutput {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("no topics common to both snapshots")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tSTATUS T1\tSTATUS T2\tVOLUME Δ\tVELOCITY Δ\tFRESHNESS Δ")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%+d\t%+.0f\t%+.2f\n",
			t.Tag, t.StatusT1, t.StatusT2, t.VolumeDelta, t.VelocityDelta, t.FreshnessDelta)
	}
	return w.Flush()
}

func runTopicGrowth(o queryOpts, g growthOpts) error {
	rd, ts1, ts2, err := resolvePair(o, g.ts1, g.ts2)
	if err != nil {
		return err
	}

	rows := rd.TopicGrowth(ts1, ts2, g.filter())
	if g.limit > 0 && len(rows) > g.limit {
		rows = rows[:g.limit]
	}
	if o.jsonOutput {
		return printJSON(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tVIEWS DELTA")
	for _, t := range rows {
		fmt.Fprintf(w, "%s\t%d\n", t.Tag, t.ViewsDelta)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, logger, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	live := radar.NewLive(radar.New(snapshot.NewTable(nil), buildParams(cfg, queryOpts{})))
	sched := scheduler.New(db, buildSources(cfg, logger), live, buildAlertManager(cfg),
		buildNormalizer(cfg), cfg.Schedule.ParseCollectInterval(), logger)
	if err := sched.Reload(ctx); err != nil {
		return err
	}

	go func() {
		if err := sched.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Error("store watch stopped", "err", err)
		}
	}()

	srv := server.New(live, sched, port, logger)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	cfg, logger, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sources := buildSources(cfg, logger)
	if len(sources) == 0 {
		return fmt.Errorf("no sources enabled (see sources.youtube and sources.feeds in the config)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	live := radar.NewLive(radar.New(snapshot.NewTable(nil), buildParams(cfg, queryOpts{})))
	sched := scheduler.New(db, sources, live, buildAlertManager(cfg),
		buildNormalizer(cfg), cfg.Schedule.ParseCollectInterval(), logger)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler stopped", "err", err)
		}
	}()

	srv := server.New(live, sched, port, logger)
	err = srv.ListenAndServe(ctx)
	logger.Info("shutting down")
	return err
}

func resolveOne(o queryOpts, tsArg string) (*radar.Radar, time.Time, error) {
	rd, err := loadRadar(o)
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err := radar.ParseTimestamp(tsArg)
	if err != nil {
		return nil, time.Time{}, err
	}
	ts, err = rd.Resolve(ts)
	if err != nil {
		return nil, time.Time{}, err
	}
	return rd, ts, nil
}

func resolvePair(o queryOpts, ts1Arg, ts2Arg string) (*radar.Radar, time.Time, time.Time, error) {
	rd, err := loadRadar(o)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	ts1, err := radar.ParseTimestamp(ts1Arg)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	ts2, err := radar.ParseTimestamp(ts2Arg)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	ts1, ts2, err = rd.ResolvePair(ts1, ts2)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	return rd, ts1, ts2, nil
}

func (g growthOpts) filter() metrics.GrowthFilter {
	return metrics.GrowthFilter{
		CategoryIDs:   g.categories,
		Shorts:        snapshot.ParseShortsFilter(g.shorts),
		MinViewsDelta: g.minDelta,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
