package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/copyleftdev/distinct/internal/colorspace"
	"github.com/copyleftdev/distinct/internal/config"
	apperrors "github.com/copyleftdev/distinct/internal/errors"
	"github.com/copyleftdev/distinct/internal/logging"
	"github.com/copyleftdev/distinct/internal/optimization"
	"github.com/copyleftdev/distinct/internal/optimization/deltae"
	"github.com/copyleftdev/distinct/internal/palette"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Status is the lifecycle state of a palette job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// DistinctRequest is the body of POST /api/v1/distinct and the parameter of
// distinct.start.
type DistinctRequest struct {
	Count  int                    `json:"count"`
	Metric string                 `json:"metric,omitempty"`
	Fixed  []colorspace.Color     `json:"fixed,omitempty"`
	Fill   string                 `json:"fill,omitempty"`
	Seed   int64                  `json:"seed,omitempty"`
	Global *optimization.Schedule `json:"global,omitempty"`
	Local  *optimization.Schedule `json:"local,omitempty"`
}

// JobProgress is the latest annealing snapshot of a running job.
type JobProgress struct {
	Phase       palette.Phase `json:"phase"`
	Iteration   int           `json:"iteration"`
	Temperature float64       `json:"temperature"`
	Mean        float64       `json:"mean_closest_distance"`
	Min         float64       `json:"min_closest_distance"`
}

// Job tracks one palette generation. Fields are guarded by the server's
// jobs lock; Status hands out copies.
type Job struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	Progress    float64         `json:"progress"`
	Latest      *JobProgress    `json:"latest,omitempty"`
	Result      *palette.Result `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     *time.Time      `json:"end_time,omitempty"`
	LastUpdated time.Time       `json:"last_updated"`

	iterations int
	cancel     context.CancelFunc
}

// Server implements the HTTP and JSON-RPC surface of the palette service.
// It runs jobs in the background and lets clients poll or cancel them.
type Server struct {
	cfg     *config.Config
	logger  Logger
	metrics *Metrics

	jobs    map[string]*Job
	jobsMu  sync.RWMutex
	running int
	wg      sync.WaitGroup
}

// NewServer creates a new server instance with the given config, logger and
// metrics.
func NewServer(cfg *config.Config, logger Logger, metrics *Metrics) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		jobs:    make(map[string]*Job),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/distinct", s.handleDistinct)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/distinct/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// buildRequest turns an API request into a palette request, applying the
// configured defaults and limits.
func (s *Server) buildRequest(in DistinctRequest) (palette.Request, error) {
	invalid := func(format string, args ...interface{}) error {
		return optimization.NewErrorf(format, args...).WithOperation("start").WithComponent("server")
	}

	if in.Count > s.cfg.Distinct.MaxColors {
		return palette.Request{}, invalid("count %d exceeds the limit of %d", in.Count, s.cfg.Distinct.MaxColors)
	}

	metric := s.cfg.Distinct.Metric
	if in.Metric != "" {
		m, err := deltae.ParseMetric(in.Metric)
		if err != nil {
			return palette.Request{}, invalid("%v", err)
		}
		metric = m
	}

	var fill colorspace.Strategy
	if in.Fill != "" {
		f, err := colorspace.StrategyByName(in.Fill)
		if err != nil {
			return palette.Request{}, invalid("%v", err)
		}
		fill = f
	}

	seed := in.Seed
	if seed == 0 {
		seed = s.cfg.Distinct.Seed
	}

	req := palette.Request{
		Count:  in.Count,
		Metric: metric,
		Fixed:  in.Fixed,
		Fill:   fill,
		Global: s.cfg.Distinct.Global.Optimization(palette.DefaultGlobalSchedule),
		Local:  s.cfg.Distinct.Local.Optimization(palette.DefaultLocalSchedule),
		Seed:   seed,
	}
	if in.Global != nil {
		req.Global = *in.Global
	}
	if in.Local != nil {
		req.Local = *in.Local
	}
	for _, sched := range []optimization.Schedule{req.Global, req.Local} {
		if sched.Iterations < 0 || sched.CoolingRate < 0 || sched.CoolingRate > 1 || sched.InitialTemperature < 0 {
			return palette.Request{}, invalid("invalid schedule %+v", sched)
		}
	}
	if err := req.Validate(); err != nil {
		return palette.Request{}, err
	}
	return req, nil
}

// start validates the request and launches a job.
func (s *Server) start(in DistinctRequest) (Job, error) {
	req, err := s.buildRequest(in)
	if err != nil {
		return Job{}, err
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if s.running >= s.cfg.Distinct.MaxJobs {
		return Job{}, apperrors.Wrapf(apperrors.ErrTooManyJobs, "limit is %d", s.cfg.Distinct.MaxJobs).WithOperation("start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	job := &Job{
		ID:          uuid.NewString(),
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		iterations:  req.Global.Iterations + req.Local.Iterations,
		cancel:      cancel,
	}
	s.jobs[job.ID] = job
	s.running++
	s.metrics.jobStarted()

	jobLogger := s.logger.WithFields(map[string]interface{}{"job_id": job.ID})
	req.Logger = logging.NewZapLogger(jobLogger)
	req.Observer = func(p palette.Progress) { s.observe(job, req.Global.Iterations, p) }

	s.wg.Add(1)
	go s.run(ctx, job, req, jobLogger)

	jobLogger.Info("Palette job started", map[string]interface{}{
		"count":  req.Count,
		"fixed":  len(req.Fixed),
		"metric": req.Metric.String(),
	})
	return *job, nil
}

func (s *Server) observe(job *Job, globalIterations int, p palette.Progress) {
	done := p.Iteration
	if p.Phase == palette.PhaseLocal {
		done += globalIterations
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if job.iterations > 0 {
		job.Progress = float64(done) / float64(job.iterations)
	}
	job.Latest = &JobProgress{
		Phase:       p.Phase,
		Iteration:   p.Iteration,
		Temperature: p.Temperature,
		Mean:        p.Statistics.Mean,
		Min:         p.Statistics.Min,
	}
	job.LastUpdated = time.Now()
}

// run executes the job in its own goroutine.
func (s *Server) run(ctx context.Context, job *Job, req palette.Request, logger Logger) {
	defer s.wg.Done()

	s.jobsMu.Lock()
	if job.Status == StatusPending {
		job.Status = StatusRunning
	}
	s.jobsMu.Unlock()

	result, err := palette.Distinct(ctx, req)

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	now := time.Now()
	switch {
	case job.Status == StatusCancelled:
	case err != nil && apperrors.Is(err, context.Canceled):
		job.Status = StatusCancelled
	case err != nil:
		logger.Error("Palette job failed", map[string]interface{}{"error": err.Error()})
		job.Status = StatusFailed
		job.Error = err.Error()
	default:
		job.Status = StatusCompleted
		job.Result = result
		job.Progress = 1
		logger.Info("Palette job completed", map[string]interface{}{
			"min_closest_distance": result.Statistics.Min,
			"duration_ms":          now.Sub(job.StartTime).Milliseconds(),
		})
	}
	if job.EndTime == nil {
		job.EndTime = &now
	}
	job.LastUpdated = now
	job.cancel()
	s.running--
	s.metrics.jobFinished(job)
}

// status returns a copy of the job.
func (s *Server) status(id string) (Job, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, apperrors.Wrapf(apperrors.ErrNotFound, "job %s", id).WithOperation("status")
	}
	return *job, nil
}

// cancel requests that a running job stop.
func (s *Server) cancel(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return apperrors.Wrapf(apperrors.ErrNotFound, "job %s", id).WithOperation("cancel")
	}
	if job.Status.terminal() {
		return apperrors.Wrapf(apperrors.ErrConflict, "job %s is %s", id, job.Status).WithOperation("cancel")
	}

	job.cancel()
	now := time.Now()
	job.Status = StatusCancelled
	job.EndTime = &now
	job.LastUpdated = now

	s.logger.Info("Palette job cancelled", map[string]interface{}{"job_id": id})
	return nil
}

// Close cancels all running jobs and waits for them to return.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	for _, job := range s.jobs {
		if !job.Status.terminal() {
			job.cancel()
		}
	}
	s.jobsMu.Unlock()

	s.wg.Wait()
	return nil
}

// handleDistinct handles POST /api/v1/distinct.
func (s *Server) handleDistinct(w http.ResponseWriter, r *http.Request) {
	var in DistinctRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		apperrors.WriteJSON(w, apperrors.Wrap(err, "invalid request body").WithStatus(http.StatusBadRequest))
		return
	}

	job, err := s.start(in)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":     job.ID,
		"status": job.Status,
	})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleCancel handles DELETE /api/v1/distinct/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancel(chi.URLParam(r, "id")); err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSON-RPC 2.0 error codes
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type rpcJobID struct {
	ID string `json:"id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests. Every method takes a single
// positional object parameter.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, rpcParseError, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, rpcInvalidRequest, "Invalid Request", request.ID)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "distinct.start":
		var in DistinctRequest
		if err = decodeParam(request.Params, &in); err == nil {
			var job Job
			if job, err = s.start(in); err == nil {
				result = map[string]interface{}{"id": job.ID, "status": job.Status}
			}
		}
	case "distinct.status":
		var p rpcJobID
		if err = decodeParam(request.Params, &p); err == nil {
			result, err = s.status(p.ID)
		}
	case "distinct.cancel":
		var p rpcJobID
		if err = decodeParam(request.Params, &p); err == nil {
			if err = s.cancel(p.ID); err == nil {
				result = map[string]string{"status": "cancellation requested"}
			}
		}
	default:
		s.respondWithError(w, rpcMethodNotFound, "Method not found", request.ID)
		return
	}

	if err != nil {
		code := rpcServerError
		if apperrors.HTTPStatus(err) == http.StatusBadRequest {
			code = rpcInvalidParams
		}
		s.respondWithError(w, code, err.Error(), request.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

func decodeParam(params []json.RawMessage, v interface{}) error {
	if len(params) != 1 {
		return optimization.NewErrorf("expected one parameter object, got %d", len(params))
	}
	if err := json.Unmarshal(params[0], v); err != nil {
		return optimization.WrapError(fmt.Errorf("%w: %v", optimization.ErrInvalidRequest, err), "invalid parameter")
	}
	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}
