package worker

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/goatcheese98/career-constellation/internal/chat"
	"github.com/goatcheese98/career-constellation/internal/constellation"
	gormdb "github.com/goatcheese98/career-constellation/internal/db/gorm"
	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// DefaultSimilarJobs is the neighbour count of the job detail view.
	DefaultSimilarJobs = 3
	// DefaultSimilarTopK is used when a similar-jobs request omits top_k.
	DefaultSimilarTopK = 5
	// MaxSimilarTopK bounds top_k.
	MaxSimilarTopK = 50
	// MaxDuplicatesListed caps the pairs returned by the duplicates route.
	MaxDuplicatesListed = 100
	// DefaultSearchLimit is the job search page size.
	DefaultSearchLimit = 20
	// DefaultGenerationsLimit is the generation history page size.
	DefaultGenerationsLimit = 20

	maxBodyBytes = 1 << 20
)

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.recordMetrics)

	r.Get("/health", s.handleHealth)
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ready", s.handleReady)
	r.Get("/api/version", s.handleVersion)
	r.Get("/api/metrics", s.handleMetrics)
	r.Get("/api/events", s.sseBroadcaster.HandleSSE)

	// Reports and chat work before the first generation; record context is
	// simply empty until then.
	r.Get("/api/reports", s.handleReports)
	r.Get("/api/reports/{id}", s.handleReport)
	r.Get("/api/chat/status", s.handleChatStatus)
	r.Post("/api/chat/context", s.handleChatContext)
	r.With(s.limitChat).Post("/api/chat", s.handleChat)

	r.Post("/api/rebuild", s.handleRebuild)
	r.Get("/api/generations", s.handleGenerations)
	r.Get("/api/generations/{id}", s.handleGeneration)

	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)
		r.Get("/api/constellation", s.handleConstellation)
		r.Get("/api/jobs", s.handleJobs)
		r.Get("/api/job/{id}", s.handleJob)
		r.Post("/api/similar-jobs", s.handleSimilarJobs)
		r.Get("/api/clusters/similarity", s.handleClusterSimilarity)
		r.Get("/api/clusters/{id}/details", s.handleClusterDetails)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/standardization/duplicates", s.handleDuplicates)
		r.Get("/api/standardization/messiness", s.handleMessiness)
		r.Get("/api/search", s.handleSearch)
	})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	}
	resp := map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	}
	if ds := s.data.Load(); ds != nil {
		resp["generation"] = ds.ID
		resp["total_jobs"] = len(ds.Jobs)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

type constellationResponse struct {
	Generation  string           `json:"generation"`
	Strategy    string           `json:"embedding_strategy"`
	Jobs        []models.Job     `json:"jobs"`
	Clusters    []models.Cluster `json:"clusters"`
	TotalJobs   int              `json:"total_jobs"`
	NumClusters int              `json:"num_clusters"`
}

func (s *Service) handleConstellation(w http.ResponseWriter, _ *http.Request) {
	ds := s.data.Load()
	jobs := make([]models.Job, len(ds.Jobs))
	for i, j := range ds.Jobs {
		jobs[i] = j.Preview()
	}
	writeJSON(w, http.StatusOK, constellationResponse{
		Generation:  ds.ID,
		Strategy:    string(ds.Strategy),
		Jobs:        jobs,
		Clusters:    ds.Clusters,
		TotalJobs:   len(jobs),
		NumClusters: len(ds.Clusters),
	})
}

func (s *Service) handleJobs(w http.ResponseWriter, r *http.Request) {
	ds := s.data.Load()
	raw := strings.TrimSpace(r.URL.Query().Get("clusters"))
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{"jobs": ds.Jobs, "count": len(ds.Jobs)})
		return
	}

	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			writeError(w, http.StatusBadRequest, "clusters must be a comma-separated list of ids")
			return
		}
		ids = append(ids, id)
	}
	jobs := ds.JobsInClusters(ids)
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

type jobDetail struct {
	models.Job
	ClusterLabel string                     `json:"cluster_label"`
	SimilarJobs  []constellation.SimilarJob `json:"similar_jobs"`
	Coordinates  models.Point               `json:"coordinates"`
}

func (s *Service) handleJob(w http.ResponseWriter, r *http.Request) {
	ds := s.data.Load()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, err := ds.Job(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	similar, err := ds.SimilarJobs(id, DefaultSimilarJobs)
	if err != nil {
		log.Warn().Err(err).Int("job", id).Msg("Similar jobs unavailable")
	}
	detail := jobDetail{Job: *job, SimilarJobs: similar, Coordinates: job.Coordinates()}
	if detail.SimilarJobs == nil {
		detail.SimilarJobs = []constellation.SimilarJob{}
	}
	if c, err := ds.Cluster(job.ClusterID); err == nil {
		detail.ClusterLabel = c.Label
	}
	writeJSON(w, http.StatusOK, detail)
}

type similarJobsRequest struct {
	JobID *int `json:"job_id"`
	TopK  int  `json:"top_k"`
}

func (s *Service) handleSimilarJobs(w http.ResponseWriter, r *http.Request) {
	ds := s.data.Load()
	var req similarJobsRequest
	if err := decodeBody(w, r, &req); err != nil || req.JobID == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"job_id\": int, \"top_k\": int}")
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultSimilarTopK
	}
	if topK > MaxSimilarTopK {
		topK = MaxSimilarTopK
	}

	job, err := ds.Job(*req.JobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	similar, err := ds.SimilarJobs(job.ID, topK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source_job_id": job.ID,
		"source_title":  job.Title,
		"similar_jobs":  similar,
	})
}

func (s *Service) handleClusterDetails(w http.ResponseWriter, r *http.Request) {
	ds := s.data.Load()
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cluster id")
		return
	}
	details, err := ds.ClusterDetails(id)
	if errors.Is(err, constellation.ErrClusterNotFound) {
		writeError(w, http.StatusNotFound, "Cluster not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Service) handleClusterSimilarity(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Load().ClusterSimilarity)
}

func (s *Service) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.data.Load().Stats)
}

func (s *Service) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	ds := s.data.Load()
	threshold := ds.Config.GlobalThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a number in [0, 1]")
			return
		}
		threshold = t
	}

	pairs, err := ds.DuplicatesAbove(threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("threshold must be at least %g", ds.ScanFloor))
		return
	}
	total := len(pairs)
	if len(pairs) > MaxDuplicatesListed {
		pairs = pairs[:MaxDuplicatesListed]
	}
	if pairs == nil {
		pairs = []models.DuplicatePair{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_pairs": total,
		"threshold":   threshold,
		"scan_floor":  ds.ScanFloor,
		"duplicates":  pairs,
	})
}

func (s *Service) handleMessiness(w http.ResponseWriter, _ *http.Request) {
	ranked := s.data.Load().MessinessRanking()
	writeJSON(w, http.StatusOK, map[string]any{
		"clusters":       ranked,
		"total_clusters": len(ranked),
	})
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	s.metrics.RecordSearch()
	hits := s.search.SearchJobs(s.data.Load(), query, gormdb.ParseLimitParam(r, DefaultSearchLimit))
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": hits,
		"count":   len(hits),
	})
}

func (s *Service) decodeChat(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	var req chat.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat request")
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return req, false
	}
	return req, true
}

func (s *Service) handleChatContext(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.chat.Retrieve(req))
}

func (s *Service) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}
	reply := s.chat.Chat(r.Context(), req)
	s.metrics.RecordChat(r.Context(), reply.Limited)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Service) handleChatStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"generator": s.chat.HasGenerator(),
		"reports":   len(s.search.Reports()),
		"chunks":    s.search.Index().Len(),
	}
	if s.chatLimiter != nil {
		resp["rate_limit"] = float64(s.chatLimiter.Limit())
		resp["burst"] = s.chatLimiter.Burst()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleReports(w http.ResponseWriter, _ *http.Request) {
	reports := s.search.Reports()
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	report, ok := s.search.Report(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Report not found")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleRebuild(w http.ResponseWriter, _ *http.Request) {
	if !s.TriggerRebuild() {
		writeError(w, http.StatusConflict, "rebuild already queued")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type generationView struct {
	Clusters       []clusterSnapshotView `json:"clusters,omitempty"`
	ID             string                `json:"id"`
	Source         string                `json:"source"`
	Strategy       string                `json:"strategy"`
	Status         string                `json:"status"`
	Error          string                `json:"error,omitempty"`
	BuiltAt        string                `json:"built_at"`
	TotalJobs      int                   `json:"total_jobs"`
	NumClusters    int                   `json:"num_clusters"`
	DuplicatePairs int                   `json:"duplicate_pairs"`
	DroppedRecords int                   `json:"dropped_records"`
	EmbeddingDim   int                   `json:"embedding_dim"`
	DurationMS     int64                 `json:"duration_ms"`
	Degraded       bool                  `json:"degraded"`
}

type clusterSnapshotView struct {
	Label     string                 `json:"label"`
	Keywords  models.JSONStringArray `json:"keywords"`
	ClusterID int                    `json:"cluster_id"`
	Size      int                    `json:"size"`
	Messiness float64                `json:"messiness"`
}

func newGenerationView(g *gormdb.Generation) generationView {
	v := generationView{
		ID:             g.ID,
		Source:         g.Source,
		Strategy:       g.Strategy,
		Status:         g.Status,
		Error:          g.Error.String,
		BuiltAt:        g.BuiltAt,
		TotalJobs:      g.TotalJobs,
		NumClusters:    g.NumClusters,
		DuplicatePairs: g.DuplicatePairs,
		DroppedRecords: g.DroppedRecords,
		EmbeddingDim:   g.EmbeddingDim,
		DurationMS:     g.DurationMS,
		Degraded:       g.Degraded,
	}
	for _, c := range g.Clusters {
		v.Clusters = append(v.Clusters, clusterSnapshotView{
			ClusterID: c.ClusterID,
			Label:     c.Label,
			Size:      c.Size,
			Messiness: c.Messiness,
			Keywords:  c.Keywords,
		})
	}
	return v
}

func (s *Service) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if s.generations == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}
	gens, err := s.generations.ListGenerations(r.Context(), gormdb.ParseLimitParam(r, DefaultGenerationsLimit))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list generations")
		writeError(w, http.StatusInternalServerError, "failed to list generations")
		return
	}
	views := make([]generationView, len(gens))
	for i := range gens {
		views[i] = newGenerationView(&gens[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": views, "count": len(views)})
}

func (s *Service) handleGeneration(w http.ResponseWriter, r *http.Request) {
	if s.generations == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}
	g, err := s.generations.GetGeneration(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, gormdb.ErrGenerationNotFound) {
		writeError(w, http.StatusNotFound, "Generation not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load generation")
		writeError(w, http.StatusInternalServerError, "failed to load generation")
		return
	}
	writeJSON(w, http.StatusOK, newGenerationView(g))
}
