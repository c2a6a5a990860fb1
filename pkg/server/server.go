package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/ytradar/pkg/metrics"
	"github.com/elonfeng/ytradar/pkg/radar"
	"github.com/elonfeng/ytradar/pkg/snapshot"
)

// Capturer takes one snapshot on demand and returns how many items it saved.
type Capturer interface {
	Capture(ctx context.Context) (int, error)
}

// Server provides the HTTP API.
type Server struct {
	live     *radar.Live
	capturer Capturer
	metrics  *apiMetrics
	logger   *log.Logger
	port     int
}

// New creates a new HTTP server. capturer may be nil, which disables
// on-demand collection.
func New(live *radar.Live, capturer Capturer, port int, logger *log.Logger) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		live:     live,
		capturer: capturer,
		metrics:  newAPIMetrics(live),
		logger:   logger,
		port:     port,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.metrics.instrument(endpoint, h))
	}

	route("/health", "health", s.handleHealth)
	route("/api/v1/snapshots", "snapshots", s.handleSnapshots)
	route("/api/v1/categories", "categories", s.handleCategories)
	route("/api/v1/topics", "topics", s.handleTopics)
	route("/api/v1/videos", "videos", s.handleVideos)
	route("/api/v1/trending", "trending", s.handleTrending)
	route("/api/v1/growth", "growth", s.handleGrowth)
	route("/api/v1/category-diff", "category_diff", s.handleCategoryDiff)
	route("/api/v1/topic-diff", "topic_diff", s.handleTopicDiff)
	route("/api/v1/topic-growth", "topic_growth", s.handleTopicGrowth)
	route("/api/v1/collect", "collect", s.handleCollect)
	mux.Handle("/metrics", s.metrics.handler())
	return mux
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	snaps := s.live.Load().Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  snaps,
		"count": len(snaps),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rd, ts, ok := s.single(w, r)
	if !ok {
		return
	}
	rows := rd.Categories(ts)
	writeList(w, ts, rows, len(rows))
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	cat, ok := requireCategory(w, r)
	if !ok {
		return
	}
	rd, ts, ok := s.single(w, r)
	if !ok {
		return
	}

	rows := rd.Topics(ts, cat)
	if status := r.URL.Query().Get("status"); status != "" {
		var filtered []metrics.TopicMetrics
		for _, t := range rows {
			if strings.EqualFold(string(t.Status), status) {
				filtered = append(filtered, t)
			}
		}
		rows = filtered
	}

	resp := map[string]any{
		"snapshot_ts": ts,
		"category_id": cat,
		"data":        rows,
		"count":       len(rows),
		"by_status":   metrics.CountByStatus(rows),
	}
	if th, ok := rd.Thresholds(ts, cat); ok {
		resp["thresholds"] = th
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	cat, ok := requireCategory(w, r)
	if !ok {
		return
	}
	rd, ts, ok := s.single(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 50)
	if !ok {
		return
	}

	rows := rd.Videos(ts, cat, snapshot.ParseShortsFilter(r.URL.Query().Get("shorts")), limit)
	writeList(w, ts, rows, len(rows))
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rd, ts, ok := s.single(w, r)
	if !ok {
		return
	}
	rows := rd.TrendingTopics(ts)
	writeList(w, ts, rows, len(rows))
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rd, ts1, ts2, ok := s.pair(w, r)
	if !ok {
		return
	}
	filter, ok := growthFilter(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 0)
	if !ok {
		return
	}

	rows := rd.Growth(ts1, ts2, filter)
	stats := metrics.SummarizeGrowth(rows)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ts1":   ts1,
		"ts2":   ts2,
		"stats": stats,
		"data":  rows,
		"count": len(rows),
	})
}

func (s *Server) handleCategoryDiff(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rd, ts1, ts2, ok := s.pair(w, r)
	if !ok {
		return
	}
	rows := rd.CategoryDiff(ts1, ts2)
	writePairList(w, ts1, ts2, rows, len(rows))
}

func (s *Server) handleTopicDiff(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	cat, ok := requireCategory(w, r)
	if !ok {
		return
	}
	rd, ts1, ts2, ok := s.pair(w, r)
	if !ok {
		return
	}
	rows := rd.TopicDiff(ts1, ts2, cat)
	writePairList(w, ts1, ts2, rows, len(rows))
}

func (s *Server) handleTopicGrowth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	rd, ts1, ts2, ok := s.pair(w, r)
	if !ok {
		return
	}
	filter, ok := growthFilter(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", 0)
	if !ok {
		return
	}

	rows := rd.TopicGrowth(ts1, ts2, filter)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	writePairList(w, ts1, ts2, rows, len(rows))
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.capturer == nil {
		writeError(w, http.StatusServiceUnavailable, "collection is not configured")
		return
	}

	n, err := s.capturer.Capture(r.Context())
	if err != nil {
		s.logger.Error("on-demand capture failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collected": n})
}

// radarFor applies the fresh_hours and min_videos query overrides.
func (s *Server) radarFor(w http.ResponseWriter, r *http.Request) (*radar.Radar, bool) {
	rd := s.live.Load()
	params := rd.Params()
	q := r.URL.Query()

	if v := q.Get("fresh_hours"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "fresh_hours must be a positive number")
			return nil, false
		}
		params.FreshHours = f
	}
	if v := q.Get("min_videos"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "min_videos must be a positive integer")
			return nil, false
		}
		params.MinVideosPerTag = n
	}
	if params != rd.Params() {
		rd = rd.WithParams(params)
	}
	return rd, true
}

// single resolves the ts parameter, defaulting to the latest snapshot.
func (s *Server) single(w http.ResponseWriter, r *http.Request) (*radar.Radar, time.Time, bool) {
	rd, ok := s.radarFor(w, r)
	if !ok {
		return nil, time.Time{}, false
	}
	ts, err := radar.ParseTimestamp(r.URL.Query().Get("ts"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, time.Time{}, false
	}
	ts, err = rd.Resolve(ts)
	if err != nil {
		writeQueryError(w, err)
		return nil, time.Time{}, false
	}
	return rd, ts, true
}

// pair resolves ts1 and ts2, defaulting to the previous and latest snapshots.
func (s *Server) pair(w http.ResponseWriter, r *http.Request) (*radar.Radar, time.Time, time.Time, bool) {
	rd, ok := s.radarFor(w, r)
	if !ok {
		return nil, time.Time{}, time.Time{}, false
	}
	ts1, err := radar.ParseTimestamp(r.URL.Query().Get("ts1"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, time.Time{}, time.Time{}, false
	}
	ts2, err := radar.ParseTimestamp(r.URL.Query().Get("ts2"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, time.Time{}, time.Time{}, false
	}
	ts1, ts2, err = rd.ResolvePair(ts1, ts2)
	if err != nil {
		writeQueryError(w, err)
		return nil, time.Time{}, time.Time{}, false
	}
	return rd, ts1, ts2, true
}

func growthFilter(w http.ResponseWriter, r *http.Request) (metrics.GrowthFilter, bool) {
	q := r.URL.Query()
	f := metrics.GrowthFilter{
		Shorts: snapshot.ParseShortsFilter(q.Get("shorts")),
	}
	for _, v := range q["category"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				f.CategoryIDs = append(f.CategoryIDs, id)
			}
		}
	}
	if v := q.Get("min_delta"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_delta must be an integer")
			return f, false
		}
		f.MinViewsDelta = n
	}
	return f, true
}

func requireCategory(w http.ResponseWriter, r *http.Request) (string, bool) {
	cat := r.URL.Query().Get("category")
	if cat == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return "", false
	}
	return cat, true
}

func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, radar.ErrSnapshotOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, radar.ErrNoSnapshots):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeList(w http.ResponseWriter, ts time.Time, data any, count int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot_ts": ts,
		"data":        data,
		"count":       count,
	})
}

func writePairList(w http.ResponseWriter, ts1, ts2 time.Time, data any, count int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ts1":   ts1,
		"ts2":   ts2,
		"data":  data,
		"count": count,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
