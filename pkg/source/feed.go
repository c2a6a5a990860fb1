package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// ChannelFeed is a channel Atom feed whose entries belong to one category.
type ChannelFeed struct {
	URL          string
	CategoryID   string
	CategoryName string
}

// Feed collects channel uploads from Atom feeds. Feeds carry views but no
// duration, so items are short-form only when tagged #shorts.
type Feed struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []ChannelFeed
	logger *log.Logger
}

// NewFeed creates a new channel feed collector.
func NewFeed(feeds []ChannelFeed, logger *log.Logger) *Feed {
	return &Feed{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		logger: logger.WithPrefix("feed"),
	}
}

func (f *Feed) Name() SourceType { return SourceFeed }

func (f *Feed) Collect(ctx context.Context, at time.Time) ([]snapshot.ItemRecord, error) {
	var all []snapshot.ItemRecord
	for _, feed := range f.feeds {
		records, err := f.collectFeed(ctx, feed, at)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			f.logger.Warn("feed failed", "url", feed.URL, "err", err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

func (f *Feed) collectFeed(ctx context.Context, feed ChannelFeed, at time.Time) ([]snapshot.ItemRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "ytradar/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var records []snapshot.ItemRecord
	for _, entry := range parsed.Items {
		id := extValue(entry.Extensions, "yt", "videoId")
		if id == "" {
			id = entry.GUID
		}
		if id == "" {
			continue
		}

		published := time.Time{}
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		channel := parsed.Title
		if entry.Author != nil && entry.Author.Name != "" {
			channel = entry.Author.Name
		}

		description := entry.Description
		if description == "" {
			description = mediaDescription(entry.Extensions)
		}

		views := mediaViews(entry.Extensions)
		hashtags := ExtractHashtags(entry.Title, description)
		records = append(records, snapshot.ItemRecord{
			ItemID:       id,
			SnapshotTS:   at,
			CategoryID:   feed.CategoryID,
			CategoryName: feed.CategoryName,
			Title:        entry.Title,
			ChannelTitle: channel,
			Views:        views,
			PublishedAt:  published,
			ViewsPerHour: ViewsPerHour(views, published, at),
			IsShort:      IsShortForm(0, hashtags),
			TagFields:    TagFields(entry.Categories, hashtags),
		})
	}
	return records, nil
}

// extValue returns the text of the first prefix:name extension element.
func extValue(exts ext.Extensions, prefix, name string) string {
	if els := exts[prefix][name]; len(els) > 0 {
		return strings.TrimSpace(els[0].Value)
	}
	return ""
}

// mediaViews reads media:group/media:community/media:statistics@views.
func mediaViews(exts ext.Extensions) int64 {
	stats := mediaChild(exts, "community", "statistics")
	if stats == nil {
		return 0
	}
	views, err := strconv.ParseInt(stats.Attrs["views"], 10, 64)
	if err != nil {
		return 0
	}
	return views
}

func mediaDescription(exts ext.Extensions) string {
	if d := mediaChild(exts, "description"); d != nil {
		return d.Value
	}
	return ""
}

// mediaChild walks down from media:group along path.
func mediaChild(exts ext.Extensions, path ...string) *ext.Extension {
	groups := exts["media"]["group"]
	if len(groups) == 0 {
		return nil
	}
	cur := &groups[0]
	for _, name := range path {
		children := cur.Children[name]
		if len(children) == 0 {
			return nil
		}
		cur = &children[0]
	}
	return cur
}
