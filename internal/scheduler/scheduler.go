package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/internal/store"
	"github.com/elonfeng/ytradar/pkg/alert"
	"github.com/elonfeng/ytradar/pkg/radar"
	"github.com/elonfeng/ytradar/pkg/snapshot"
	"github.com/elonfeng/ytradar/pkg/source"
	"github.com/elonfeng/ytradar/pkg/topic"
)

// Scheduler captures snapshots periodically, reloads the served table and
// alerts on topics that turned Trending.
type Scheduler struct {
	store      store.Store
	sources    []source.Source
	live       *radar.Live
	alertMgr   *alert.Manager
	normalizer *topic.Normalizer
	collectInt time.Duration
	logger     *log.Logger
	now        func() time.Time

	mu sync.Mutex
}

// New creates a new scheduler.
func New(
	s store.Store,
	sources []source.Source,
	live *radar.Live,
	alertMgr *alert.Manager,
	normalizer *topic.Normalizer,
	collectInt time.Duration,
	logger *log.Logger,
) *Scheduler {
	if collectInt == 0 {
		collectInt = time.Hour
	}
	if normalizer == nil {
		normalizer = topic.NewNormalizer(nil, nil)
	}
	return &Scheduler{
		store:      s,
		sources:    sources,
		live:       live,
		alertMgr:   alertMgr,
		normalizer: normalizer,
		collectInt: collectInt,
		logger:     logger.WithPrefix("scheduler"),
		now:        time.Now,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.collectInt)
	defer ticker.Stop()

	if err := s.Reload(ctx); err != nil {
		s.logger.Error("initial reload failed", "err", err)
	}
	if s.due(ctx) {
		s.logger.Info("initial capture")
		if _, err := s.Capture(ctx); err != nil {
			s.logger.Error("capture failed", "err", err)
		}
	}

	s.logger.Info("running", "collect_every", s.collectInt)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Capture(ctx); err != nil {
				s.logger.Error("capture failed", "err", err)
			}
		}
	}
}

// Watch reloads the served table on the collect interval whenever the store
// holds snapshots the table does not. It never captures. Blocks until ctx is
// cancelled.
func (s *Scheduler) Watch(ctx context.Context) error {
	ticker := time.NewTicker(s.collectInt)
	defer ticker.Stop()

	s.logger.Info("watching store", "every", s.collectInt)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("refresh failed", "err", err)
			}
		}
	}
}

// Refresh reloads the served table when the stored snapshot list differs
// from the loaded one. It reports whether a reload happened.
func (s *Scheduler) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return false, fmt.Errorf("list snapshots: %w", err)
	}
	if sameSnapshots(stored, s.live.Load().Table().Summary()) {
		return false, nil
	}
	if err := s.Reload(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func sameSnapshots(stored, loaded []snapshot.Summary) bool {
	if len(stored) != len(loaded) {
		return false
	}
	for i := range stored {
		if !stored[i].SnapshotTS.Equal(loaded[i].SnapshotTS) || stored[i].Videos != loaded[i].Videos {
			return false
		}
	}
	return true
}

// due reports whether the latest stored snapshot is at least one collect
// interval old. An empty store is always due.
func (s *Scheduler) due(ctx context.Context) bool {
	latest, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoSnapshots) {
			s.logger.Warn("latest snapshot lookup failed", "err", err)
		}
		return true
	}
	age := s.now().Sub(latest)
	if age < s.collectInt {
		s.logger.Info("skipping initial capture", "latest", latest, "age", age.Round(time.Second))
		return false
	}
	return true
}

// Capture collects one snapshot from every source, saves it, reloads the
// table and sends alerts. It returns the number of saved records.
func (s *Scheduler) Capture(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.now().UTC().Truncate(time.Second)
	records := source.CollectAll(ctx, s.sources, at, s.logger)
	if len(records) == 0 {
		s.logger.Warn("no items collected", "at", at)
		return 0, nil
	}

	if err := s.store.SaveSnapshot(ctx, records); err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Info("snapshot saved", "at", at, "items", len(records))

	if err := s.Reload(ctx); err != nil {
		return len(records), err
	}
	s.alert(ctx)
	return len(records), nil
}

// Reload rebuilds the served table from the store.
func (s *Scheduler) Reload(ctx context.Context) error {
	records, err := s.store.LoadRecords(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("reload records: %w", err)
	}
	rd := s.live.Swap(snapshot.NewTableWith(records, s.normalizer))
	s.logger.Debug("table reloaded", "records", rd.Table().Len(), "snapshots", len(rd.Table().Timestamps()))
	return nil
}

// alert notifies about topics Trending at the latest snapshot that were not
// Trending at the previous one.
func (s *Scheduler) alert(ctx context.Context) {
	if s.alertMgr == nil || !s.alertMgr.HasNotifiers() {
		return
	}

	rd := s.live.Load()
	latest, ok := rd.Table().Latest()
	if !ok {
		return
	}
	prev, _ := rd.Table().Previous()

	fresh := rd.NewlyTrending(prev, latest)
	if len(fresh) == 0 {
		return
	}

	n := Notification(latest, fresh)
	if err := s.alertMgr.Broadcast(ctx, n); err != nil {
		s.logger.Error("alert failed", "err", err)
		return
	}
	s.logger.Info("alerted", "topics", len(fresh))
}

// Notification builds the alert for newly trending topics.
func Notification(ts time.Time, topics []radar.CategoryTopic) *alert.Notification {
	n := &alert.Notification{
		Title:      fmt.Sprintf("%d new trending topic(s)", len(topics)),
		SnapshotTS: ts,
	}

	byCategory := make(map[string][]string)
	var order []string
	for _, ct := range topics {
		n.Topics = append(n.Topics, alert.Topic{
			CategoryID:   ct.CategoryID,
			CategoryName: ct.CategoryName,
			Tag:          ct.Topic.Tag,
			Velocity:     ct.Topic.Velocity,
			Volume:       ct.Topic.Volume,
			VideosCnt:    ct.Topic.VideosCnt,
			Freshness:    ct.Topic.Freshness,
		})
		if _, ok := byCategory[ct.CategoryName]; !ok {
			order = append(order, ct.CategoryName)
		}
		byCategory[ct.CategoryName] = append(byCategory[ct.CategoryName], ct.Topic.Tag)
	}

	var lines []string
	for _, name := range order {
		lines = append(lines, name+": "+strings.Join(byCategory[name], ", "))
	}
	n.Body = strings.Join(lines, "\n")
	return n
}
