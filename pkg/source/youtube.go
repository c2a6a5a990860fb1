package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// DefaultYouTubeBaseURL is the YouTube Data API v3 endpoint.
const DefaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"

const maxResultsPerPage = 50

// YouTubeOptions configures the trending chart collector.
type YouTubeOptions struct {
	APIKey            string
	BaseURL           string
	Region            string
	Categories        []string
	PerCategory       int
	RequestsPerSecond float64
}

// YouTube collects the most popular chart of every configured category.
type YouTube struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
	opts    YouTubeOptions
}

// NewYouTube creates a new YouTube chart collector.
func NewYouTube(opts YouTubeOptions, logger *log.Logger) *YouTube {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultYouTubeBaseURL
	}
	if opts.Region == "" {
		opts.Region = "US"
	}
	if opts.PerCategory <= 0 {
		opts.PerCategory = 150
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &YouTube{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.WithPrefix("youtube"),
		opts:    opts,
	}
}

func (y *YouTube) Name() SourceType { return SourceYouTube }

func (y *YouTube) Collect(ctx context.Context, at time.Time) ([]snapshot.ItemRecord, error) {
	if y.opts.APIKey == "" {
		return nil, fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}

	names, err := y.categoryNames(ctx)
	if err != nil {
		y.logger.Warn("category names unavailable", "err", err)
	}

	var all []snapshot.ItemRecord
	for _, cat := range y.opts.Categories {
		records, err := y.chart(ctx, cat, names[cat], at)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			y.logger.Warn("chart failed", "category", cat, "err", err)
			continue
		}
		y.logger.Debug("chart collected", "category", cat, "items", len(records))
		all = append(all, records...)
	}
	return all, nil
}

// chart pages through the most popular chart of one category.
func (y *YouTube) chart(ctx context.Context, categoryID, categoryName string, at time.Time) ([]snapshot.ItemRecord, error) {
	var (
		records   []snapshot.ItemRecord
		pageToken string
	)
	for len(records) < y.opts.PerCategory {
		params := url.Values{}
		params.Set("part", "snippet,contentDetails,statistics")
		params.Set("chart", "mostPopular")
		params.Set("regionCode", y.opts.Region)
		params.Set("videoCategoryId", categoryID)
		params.Set("maxResults", strconv.Itoa(min(maxResultsPerPage, y.opts.PerCategory-len(records))))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var result ytVideoResult
		if err := y.get(ctx, "videos", params, &result); err != nil {
			return records, err
		}

		for _, v := range result.Items {
			records = append(records, v.record(categoryID, categoryName, at))
		}
		if result.NextPageToken == "" || len(result.Items) == 0 {
			break
		}
		pageToken = result.NextPageToken
	}
	return records, nil
}

// categoryNames maps category ids to their regional titles.
func (y *YouTube) categoryNames(ctx context.Context) (map[string]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("regionCode", y.opts.Region)

	var result ytCategoryResult
	if err := y.get(ctx, "videoCategories", params, &result); err != nil {
		return map[string]string{}, err
	}

	names := make(map[string]string, len(result.Items))
	for _, c := range result.Items {
		names[c.ID] = c.Snippet.Title
	}
	return names, nil
}

func (y *YouTube) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("key", y.opts.APIKey)
	reqURL := strings.TrimRight(y.opts.BaseURL, "/") + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create youtube %s request: %w", endpoint, err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch youtube %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube %s status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode youtube %s: %w", endpoint, err)
	}
	return nil
}

type ytVideoResult struct {
	NextPageToken string    `json:"nextPageToken"`
	Items         []ytVideo `json:"items"`
}

type ytVideo struct {
	ID             string    `json:"id"`
	Snippet        ytSnippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
	} `json:"statistics"`
}

type ytSnippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelTitle string   `json:"channelTitle"`
	CategoryID   string   `json:"categoryId"`
	PublishedAt  string   `json:"publishedAt"`
	Tags         []string `json:"tags"`
}

type ytCategoryResult struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func (v *ytVideo) record(categoryID, categoryName string, at time.Time) snapshot.ItemRecord {
	views, _ := strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
	published := snapshot.ParseTime(v.Snippet.PublishedAt)
	duration := ParseISODuration(v.ContentDetails.Duration)
	hashtags := ExtractHashtags(v.Snippet.Title, v.Snippet.Description)

	return snapshot.ItemRecord{
		ItemID:       v.ID,
		SnapshotTS:   at,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Title:        v.Snippet.Title,
		ChannelTitle: v.Snippet.ChannelTitle,
		Views:        views,
		PublishedAt:  published,
		ViewsPerHour: ViewsPerHour(views, published, at),
		DurationSec:  duration,
		IsShort:      IsShortForm(duration, hashtags),
		TagFields:    TagFields(v.Snippet.Tags, hashtags),
	}
}

var isoDurationRE = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO 8601 duration such as PT1H2M3S to
// seconds. Unparsable input yields zero.
func ParseISODuration(s string) int {
	m := isoDurationRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
