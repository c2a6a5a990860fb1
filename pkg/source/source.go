package source

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// SourceType identifies which collector produced a record.
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceFeed    SourceType = "feed"
)

// Source is the interface every collector must implement. Collect returns
// the items visible at capture time at, stamped with at as snapshot time.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context, at time.Time) ([]snapshot.ItemRecord, error)
}

// AllSourceTypes returns all known source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceYouTube, SourceFeed}
}

// CollectAll runs every source for one capture. A failing source is logged
// and skipped. Records seen twice in the same category keep the first copy.
func CollectAll(ctx context.Context, sources []Source, at time.Time, logger *log.Logger) []snapshot.ItemRecord {
	seen := make(map[string]bool)
	var all []snapshot.ItemRecord
	for _, src := range sources {
		records, err := src.Collect(ctx, at)
		if err != nil {
			logger.Error("collect failed", "source", src.Name(), "err", err)
			continue
		}

		added := 0
		for _, rec := range records {
			key := rec.CategoryID + "\x00" + rec.ItemID
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, rec)
			added++
		}
		logger.Info("collected", "source", src.Name(), "items", added)
	}
	return all
}
