// ABOUTME: Digital-twin dashboard HTTP server: uploads, pipeline runs, SSE progress, and downloads.
// ABOUTME: Each browser session gets an independent state store; runs execute in background goroutines.
package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/snu-geoshm/geotwin/geomodel"
	"github.com/snu-geoshm/geotwin/geotech"
	"github.com/snu-geoshm/geotwin/modal"
	"github.com/snu-geoshm/geotwin/pipeline"
	"github.com/snu-geoshm/geotwin/session"
	"github.com/snu-geoshm/geotwin/simulation"
	"github.com/snu-geoshm/geotwin/store"
	"github.com/snu-geoshm/geotwin/tabular"
)

const (
	sessionCookie    = "geotwin_session"
	maxUploadBytes   = 10 << 20
	defaultRunWindow = 5 * time.Minute
	sessionTTL       = 24 * time.Hour
	evictInterval    = time.Hour
)

// Server is the dashboard HTTP server.
type Server struct {
	cfg      *Config
	sessions *session.Manager
	runs     *store.RunIndex
	router   chi.Router
	done     chan struct{}

	mu      sync.Mutex
	fanouts map[string]*eventFanout
	reports map[string]*pipeline.Report
}

// NewServer creates the server, its data directories, and the run-history
// index.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	runs, err := store.OpenRunIndex(filepath.Join(cfg.DataDir, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("opening run index: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		sessions: session.NewManager(sessionTTL),
		runs:     runs,
		done:     make(chan struct{}),
		fanouts:  make(map[string]*eventFanout),
		reports:  make(map[string]*pipeline.Report),
	}
	s.router = s.buildRouter()
	go s.evictLoop()
	return s, nil
}

// Close stops the eviction sweep and releases the run-history index.
func (s *Server) Close() error {
	close(s.done)
	return s.runs.Close()
}

// evictLoop periodically drops idle sessions and their event history.
func (s *Server) evictLoop() {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictIdleSessions()
		case <-s.done:
			return
		}
	}
}

func (s *Server) evictIdleSessions() {
	removed := s.sessions.Evict()
	if len(removed) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range removed {
		delete(s.fanouts, id)
		delete(s.reports, id)
	}
	s.mu.Unlock()
	log.Printf("evicted %d idle sessions", len(removed))
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server with timeouts that protect against
// slow clients. SSE responses need the long write timeout.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return srv.ListenAndServe()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.AuthToken != "" {
			r.Use(s.requireToken)
		}
		r.Use(s.ensureSession)

		r.Get("/", s.handleHome)
		r.Post("/upload/{kind}", s.handleUpload)
		r.Post("/material", s.handleMaterial)
		r.Post("/fix/{kind}", s.handleFix)
		r.Post("/run", s.handleRun)
		r.Get("/events", s.handleEvents)
		r.Get("/state", s.handleState)
		r.Get("/report", s.handleReport)
		r.Get("/runs", s.handleRunHistory)
		r.Get("/download/{what}", s.handleDownload)
	})

	return r
}

// requireToken enforces bearer-token auth when remote access is enabled.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.cfg.AuthToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const sessionKey contextKey = "geotwin.session"

// ensureSession attaches the request's session, minting a cookie for new
// visitors and restoring a persisted snapshot for returning ones.
func (s *Server) ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			id = c.Value
		} else {
			id = session.NewSessionID()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		known := s.sessions.Len()
		sess := s.sessions.Get(id)
		if s.sessions.Len() > known {
			// Freshly created in-memory session: restore any persisted state.
			if state, err := session.LoadSnapshot(s.snapshotDir(), id); err != nil {
				log.Printf("session %s: restoring snapshot: %v", id, err)
			} else if state != nil {
				sess.Store.Apply(state)
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func requestSession(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionKey).(*session.Session)
	return sess
}

func (s *Server) snapshotDir() string {
	return filepath.Join(s.cfg.DataDir, "sessions")
}

func (s *Server) fanout(sessionID string) *eventFanout {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fanouts[sessionID]
	if !ok {
		f = newEventFanout()
		s.fanouts[sessionID] = f
	}
	return f
}

func (s *Server) setLastReport(sessionID string, report *pipeline.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[sessionID] = report
}

func (s *Server) lastReport(sessionID string) *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[sessionID]
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"service":    "geotwin",
		"session_id": sess.ID,
		"endpoints": []string{
			"POST /upload/{cpt|layering|surfaces|orientations|timeseries}",
			"POST /material", "POST /fix/{kind}", "POST /run",
			"GET /events", "GET /state", "GET /report", "GET /runs",
			"GET /download/{simulation|cpt|geomodel|modal}",
		},
	})
}

// uploadKind describes one accepted upload: its session key and the columns
// the table must carry.
type uploadKind struct {
	Key          string
	RequiredCols []string
	MinRows      int
}

var uploadKinds = map[string]uploadKind{
	"cpt": {
		Key:          pipeline.KeyRawCPT,
		RequiredCols: []string{geotech.ColDepth, geotech.ColConeResistance, geotech.ColSleeveFriction},
	},
	"layering": {
		Key:          pipeline.KeyRawLayering,
		RequiredCols: []string{geotech.ColDepthFrom, geotech.ColDepthTo, geotech.ColSoilType},
	},
	"surfaces": {
		Key:          pipeline.KeySurfacePoints,
		RequiredCols: []string{geomodel.ColX, geomodel.ColY, geomodel.ColZ, geomodel.ColFormation},
	},
	"orientations": {
		Key:          pipeline.KeyOrientations,
		RequiredCols: []string{geomodel.ColX, geomodel.ColY, geomodel.ColZ, geomodel.ColFormation},
	},
	"timeseries": {
		Key:     pipeline.KeyTimeSeries,
		MinRows: modal.MinSamples,
	},
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	kindName := chi.URLParam(r, "kind")
	kind, ok := uploadKinds[kindName]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown upload kind %q", kindName), http.StatusNotFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	rows, err := tabular.Decode(header.Filename, data)
	if err == nil && len(kind.RequiredCols) > 0 {
		err = tabular.RequireColumns(rows, kind.RequiredCols...)
	}
	if err == nil && kind.MinRows > 0 && len(rows) < kind.MinRows {
		err = fmt.Errorf("insufficient data: need at least %d rows, got %d", kind.MinRows, len(rows))
	}
	if err != nil {
		s.recordError(sess, err)
		log.Printf("upload %s (%s): %v", kindName, header.Filename, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snapshot := sess.Store.GetSnapshot()
	sess.Store.Apply(snapshot.Merge(map[string]any{kind.Key: rows}))
	log.Printf("upload %s: %s stored (%d rows)", kindName, header.Filename, len(rows))
	writeJSON(w, http.StatusOK, map[string]any{"key": kind.Key, "rows": len(rows)})
}

// handleMaterial stores the simulation's material strength, from either an
// explicit value or a named preset.
func (s *Server) handleMaterial(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var value float64
	if name := strings.TrimSpace(r.FormValue("preset")); name != "" {
		m, ok := simulation.Presets()[name]
		if !ok {
			http.Error(w, fmt.Sprintf("unknown material preset %q", name), http.StatusBadRequest)
			return
		}
		value = m.Strength
	} else {
		var err error
		value, err = strconv.ParseFloat(strings.TrimSpace(r.FormValue("value")), 64)
		if err != nil || value <= 0 {
			http.Error(w, "value must be a positive number or a preset name", http.StatusBadRequest)
			return
		}
	}

	snapshot := sess.Store.GetSnapshot()
	sess.Store.Apply(snapshot.Merge(map[string]any{pipeline.KeyMaterialInput: value}))
	writeJSON(w, http.StatusOK, map[string]any{"key": pipeline.KeyMaterialInput, "value": value})
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	kindName := chi.URLParam(r, "kind")
	kind, ok := uploadKinds[kindName]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown kind %q", kindName), http.StatusNotFound)
		return
	}

	snapshot := sess.Store.GetSnapshot()
	rows := snapshot.Rows(kind.Key)
	if rows == nil {
		http.Error(w, fmt.Sprintf("no %s table to fix", kindName), http.StatusNotFound)
		return
	}

	fixed := tabular.FillMissing(rows)
	sess.Store.Apply(snapshot.Merge(map[string]any{kind.Key: fixed}))
	log.Printf("fix %s: missing values filled with 0 (%d rows)", kindName, len(fixed))
	writeJSON(w, http.StatusOK, map[string]any{"key": kind.Key, "rows": len(fixed)})
}

// handleRun snapshots the session state, runs the pipeline in the
// background, and applies the result. A run that exceeds the timeout never
// applies, leaving the store at its prior snapshot. Overlapping runs for
// one session resolve last-writer-wins at Apply.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	runID := ulid.Make().String()
	fan := s.fanout(sess.ID)
	snapshot := sess.Store.GetSnapshot()

	artifacts := pipeline.NewArtifactStore(filepath.Join(s.cfg.DataDir, "artifacts"), sess.ID)
	orch := pipeline.NewOrchestrator(pipeline.DefaultStages(pipeline.StageConfig{
		StrainPoints: s.cfg.Tuning.StrainPoints,
		SampleRate:   s.cfg.Tuning.SampleRateHz,
		Refinement:   s.cfg.Tuning.Refinement,
		Artifacts:    artifacts,
	})...)
	orch.SetEventHandler(func(evt pipeline.Event) {
		fan.Publish(stageEventToSSE(evt))
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultRunWindow)
		defer cancel()

		fan.Publish(runEvent("run.started", runID, nil))
		newState, report := orch.Run(ctx, snapshot)

		if ctx.Err() != nil {
			fan.Publish(runEvent("run.timeout", runID, nil))
			log.Printf("run %s: timed out, snapshot not applied", runID)
			return
		}

		sess.Store.Apply(newState)
		s.setLastReport(sess.ID, report)

		if err := s.runs.Insert(runID, sess.ID, report); err != nil {
			log.Printf("run %s: recording history: %v", runID, err)
		}
		if err := session.SaveSnapshot(s.snapshotDir(), sess.ID, newState); err != nil {
			log.Printf("run %s: persisting snapshot: %v", runID, err)
		}

		succeeded, skipped, failed := report.Counts()
		fan.Publish(runEvent("run.completed", runID, map[string]any{
			"succeeded": succeeded,
			"skipped":   skipped,
			"failed":    failed,
		}))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	fan := s.fanout(sess.ID)
	history, eventsCh, unsubscribe := fan.SubscribeWithHistory()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	for _, evt := range history {
		fmt.Fprint(w, evt.Format())
	}
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case evt := <-eventsCh:
			fmt.Fprint(w, evt.Format())
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	snapshot := sess.Store.GetSnapshot()

	resp := map[string]any{
		"session_id": sess.ID,
		"keys":       snapshot.Keys(),
	}
	if errMsg := snapshot.String(pipeline.KeyError, ""); errMsg != "" {
		resp["error"] = errMsg
	}
	if report := s.lastReport(sess.ID); report != nil {
		resp["last_report"] = report
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	report := s.lastReport(sess.ID)
	if report == nil {
		http.Error(w, "no pipeline run yet", http.StatusNotFound)
		return
	}

	page, err := RenderReportHTML(report)
	if err != nil {
		log.Printf("report render: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	records, err := s.runs.ListBySession(sess.ID, 50)
	if err != nil {
		log.Printf("run history: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(r)
	snapshot := sess.Store.GetSnapshot()
	what := chi.URLParam(r, "what")

	switch what {
	case "simulation":
		rows := snapshot.Rows(pipeline.KeySimulationResult)
		if rows == nil {
			http.Error(w, "no simulation result", http.StatusNotFound)
			return
		}
		writeCSV(w, "simulation_results.csv", []string{"strain", "stress"}, rows)

	case "cpt":
		rows := snapshot.Rows(pipeline.KeyProcessedCPT)
		if rows == nil {
			http.Error(w, "no processed cpt records", http.StatusNotFound)
			return
		}
		cols := []string{geotech.ColDepth, geotech.ColConeResistance, geotech.ColSleeveFriction,
			geotech.ColFrictionRatio, geotech.ColNormalizedCone, geotech.ColRelativeDensity}
		writeCSV(w, "cpt_results.csv", cols, rows)

	case "geomodel":
		v, ok := snapshot[pipeline.KeyGeoModelSummary]
		if !ok {
			http.Error(w, "no geological model summary", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="geo_model.json"`)
		writeJSON(w, http.StatusOK, v)

	case "modal":
		v, ok := snapshot[pipeline.KeyModalResult].(map[string]any)
		if !ok {
			http.Error(w, "no modal result", http.StatusNotFound)
			return
		}
		pairs, ok := v["pairs"].([]map[string]any)
		if !ok {
			http.Error(w, "no modal result", http.StatusNotFound)
			return
		}
		writeCSV(w, "modal_results.csv", []string{"frequency", "amplitude"}, pairs)

	default:
		http.Error(w, fmt.Sprintf("unknown download %q", what), http.StatusNotFound)
	}
}

// recordError stores the failure message under the session's error key,
// overwriting any previous message.
func (s *Server) recordError(sess *session.Session, err error) {
	snapshot := sess.Store.GetSnapshot()
	sess.Store.Apply(snapshot.Merge(map[string]any{pipeline.KeyError: err.Error()}))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}

// writeCSV streams a row table as a CSV attachment with the given column
// order. Cells missing from a row are left empty.
func writeCSV(w http.ResponseWriter, filename string, cols []string, rows []map[string]any) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(cols)
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := row[c]; ok && v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}
