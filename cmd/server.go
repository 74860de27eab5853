package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rollcall/internal/config"
	"github.com/sells-group/rollcall/internal/model"
	"github.com/sells-group/rollcall/internal/monitoring"
	"github.com/sells-group/rollcall/internal/pipeline"
	"github.com/sells-group/rollcall/internal/store"
	"github.com/sells-group/rollcall/internal/workspace"
)

var uploadForm = template.Must(template.New("upload").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>rollcall</title></head>
<body>
<h1>Roster reconciliation</h1>
{{if .Message}}<p class="message">{{.Message}}</p>{{end}}
<form method="post" enctype="multipart/form-data">
  <p><label>Roster <input type="file" name="roster" accept=".xlsx"></label></p>
  <p><label>Check-in lists <input type="file" name="checkin" accept=".xlsx" multiple></label></p>
  <p><label>Sheet name <input type="text" name="sheet_name" value="{{.SheetName}}"></label></p>
  <p><button type="submit">Reconcile</button></p>
</form>
</body>
</html>
`))

type formData struct {
	Message   string
	SheetName string
}

// server holds the handlers for the upload UI and the run API.
type server struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	pipeline *pipeline.Pipeline
	store    store.Store // nil when run history is disabled
	limiter  *rate.Limiter
}

// buildRouter wires the upload form, downloads, health and run API routes.
func buildRouter(c *config.Config, ws *workspace.Workspace, st store.Store) http.Handler {
	s := &server{
		cfg:      c,
		ws:       ws,
		pipeline: pipeline.New(c, st),
		store:    st,
		limiter:  rate.NewLimiter(rate.Limit(c.Server.UploadRPS), c.Server.UploadBurst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleForm)
	r.With(s.rateLimit).Post("/", s.handleUpload)
	r.Get("/download/{filename}", s.handleDownload)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: c.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/stats", s.handleStats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) renderForm(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := uploadForm.Execute(w, formData{Message: msg, SheetName: s.cfg.Sheet.Selector}); err != nil {
		zap.L().Warn("serve: render form", zap.Error(err))
	}
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.renderForm(w, http.StatusTooManyRequests, "Too many uploads, please try again shortly.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleForm(w http.ResponseWriter, _ *http.Request) {
	s.renderForm(w, http.StatusOK, "")
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.renderForm(w, http.StatusBadRequest, "The upload could not be read.")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	rosterFiles := nonEmpty(r.MultipartForm.File["roster"])
	if len(rosterFiles) == 0 {
		s.renderForm(w, http.StatusBadRequest, "Please upload the roster workbook.")
		return
	}
	checkinFiles := nonEmpty(r.MultipartForm.File["checkin"])
	if len(checkinFiles) == 0 {
		s.renderForm(w, http.StatusBadRequest, "Please upload at least one check-in workbook.")
		return
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID), zap.String("request_id", middleware.GetReqID(r.Context())))

	rosterPath, err := s.saveUpload(runID, rosterFiles[0])
	if err != nil {
		log.Error("serve: save roster", zap.Error(err))
		s.renderForm(w, http.StatusBadRequest, "The roster upload could not be saved.")
		return
	}
	var checkinPaths []string
	for _, fh := range checkinFiles {
		path, err := s.saveUpload(runID, fh)
		if err != nil {
			log.Error("serve: save check-in", zap.Error(err))
			s.renderForm(w, http.StatusBadRequest, "A check-in upload could not be saved.")
			return
		}
		checkinPaths = append(checkinPaths, path)
	}

	reportName := workspace.ReportName(runID)
	reportPath, err := s.ws.ResultPath(reportName)
	if err != nil {
		s.renderForm(w, http.StatusInternalServerError, "The report could not be created.")
		return
	}

	sheetName := strings.TrimSpace(r.FormValue("sheet_name"))
	_, err = s.pipeline.Run(r.Context(), pipeline.Job{
		RunID:         runID,
		RosterPath:    rosterPath,
		CheckinPaths:  checkinPaths,
		SheetSelector: sheetName,
		Threshold:     s.cfg.Match.Threshold,
		ReportPath:    reportPath,
		Origin:        "web",
	})
	switch {
	case err == nil:
	case pipeline.IsFatal(err):
		s.renderForm(w, http.StatusUnprocessableEntity, "The roster workbook could not be read.")
		return
	case errors.Is(err, pipeline.ErrReportWriteFailed):
		log.Error("serve: report write failed", zap.Error(err))
		s.renderForm(w, http.StatusInternalServerError, "The unmatched report could not be written.")
		return
	default:
		log.Error("serve: run failed", zap.Error(err))
		s.renderForm(w, http.StatusInternalServerError, "The reconciliation failed.")
		return
	}

	http.Redirect(w, r, "/download/"+reportName, http.StatusSeeOther)
}

func (s *server) saveUpload(runID string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck
	return s.ws.SaveUpload(runID, fh.Filename, f)
}

func nonEmpty(files []*multipart.FileHeader) []*multipart.FileHeader {
	var out []*multipart.FileHeader
	for _, fh := range files {
		if fh.Filename != "" {
			out = append(out, fh)
		}
	}
	return out
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.ws.ResultPath(name)
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	filter := store.RunFilter{Status: model.RunStatus(r.URL.Query().Get("status"))}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid "+key)
			return
		}
		*dst = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("serve: list runs", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("serve: get run", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "get run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type statsResponse struct {
	Snapshot *monitoring.Snapshot `json:"snapshot"`
	Alerts   []monitoring.Alert   `json:"alerts"`
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	lookback := time.Duration(s.cfg.Monitoring.LookbackHours) * time.Hour
	if v := r.URL.Query().Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid since")
			return
		}
		lookback = d
	}

	snap, err := monitoring.NewCollector(s.store).Collect(r.Context(), lookback)
	if err != nil {
		zap.L().Error("serve: collect stats", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "collect stats failed")
		return
	}
	alerts := monitoring.NewAlerter(s.cfg.Monitoring).Evaluate(snap)
	if alerts == nil {
		alerts = []monitoring.Alert{}
	}
	writeJSON(w, http.StatusOK, statsResponse{Snapshot: snap, Alerts: alerts})
}
