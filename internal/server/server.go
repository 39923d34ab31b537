package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/charts"
	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/loader"
	"github.com/KaramelBytes/edaloom/internal/render"
	"github.com/KaramelBytes/edaloom/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/sirupsen/logrus"
)

// ExportName is the download name of the processed table.
const ExportName = "processed_instagram_data.csv"

// unknownChart is the metrics label for chart names outside the registry.
const unknownChart = "unknown"

// MaxUpload caps the size of an uploaded table.
const MaxUpload = 64 << 20

// Options configures the HTTP API.
type Options struct {
	Render render.Options
	// Format is the default chart format when the request does not name one.
	Format render.Format
	Logger logrus.FieldLogger
}

// Server exposes a session over HTTP.
type Server struct {
	sess    *session.Session
	opt     Options
	log     logrus.FieldLogger
	router  *chi.Mux
	metrics *metrics
}

// New builds the router for s.
func New(s *session.Session, opt Options) *Server {
	if opt.Format == "" {
		opt.Format = render.PNG
	}
	log := opt.Logger
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	srv := &Server{sess: s, opt: opt, log: log, router: chi.NewRouter(), metrics: newMetrics()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.instrument)
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/table", s.handleLoad)
		r.Get("/summary", s.handleSummary)
		r.Get("/summary.html", s.handleSummaryHTML)
		r.Get("/summary/{section}", s.handleSection)
		r.Get("/charts", s.handleListCharts)
		r.Get("/charts/{name}", s.handleChart)
		r.Get("/export", s.handleExport)
	})
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("listening")
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdown); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
			"req_id":   middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fail maps core errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var pe *loader.ParseError
	var fe *loader.FileError
	switch {
	case errors.Is(err, session.ErrNoTable):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, charts.ErrUnknownChart):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, charts.ErrColumnRequired), errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &fe):
		writeError(w, http.StatusNotFound, err)
	default:
		s.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

type tableInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Cols    int      `json:"cols"`
	Columns []string `json:"columns"`
}

func infoOf(t *dataset.Table) tableInfo {
	return tableInfo{ID: t.ID(), Name: t.Name(), Rows: t.Rows(), Cols: t.Cols(), Columns: t.Names()}
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxUpload)
	defer body.Close()
	t, err := s.sess.LoadReader(body, r.URL.Query().Get("name"))
	if err != nil {
		s.metrics.loads.WithLabelValues("error").Inc()
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.fail(w, err)
		return
	}
	s.metrics.loads.WithLabelValues("ok").Inc()
	s.metrics.rows.Set(float64(t.Rows()))
	writeJSON(w, http.StatusCreated, infoOf(t))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "markdown" {
		rep, err := s.sess.Report()
		if err != nil {
			s.fail(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, rep.Markdown())
		return
	}
	s.writeSection(w, analysis.SectionReport)
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	if name != analysis.SectionReport && !slices.Contains(analysis.Sections, name) {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown summary section %q", name))
		return
	}
	s.writeSection(w, name)
}

func (s *Server) writeSection(w http.ResponseWriter, name string) {
	out, err := s.sess.Section(name)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, out+"\n")
}

func (s *Server) handleSummaryHTML(w http.ResponseWriter, _ *http.Request) {
	rep, err := s.sess.Report()
	if err != nil {
		s.fail(w, err)
		return
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Dataset Summary",
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(markdown.ToHTML([]byte(rep.Markdown()), p, renderer))
}

type chartInfo struct {
	charts.Spec
	Required []string `json:"required,omitempty"`
	AdHoc    bool     `json:"ad_hoc"`
}

func (s *Server) handleListCharts(w http.ResponseWriter, _ *http.Request) {
	specs := s.sess.Registry().Specs()
	out := make([]chartInfo, len(specs))
	for i, sp := range specs {
		out[i] = chartInfo{Spec: sp, Required: sp.Required(), AdHoc: sp.AdHoc()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	req := charts.Request{Name: chi.URLParam(r, "name"), Column: r.URL.Query().Get("column")}
	format := s.opt.Format
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = render.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	label := unknownChart
	if _, ok := s.sess.Registry().Lookup(req.Name); ok {
		label = req.Name
	}
	res, err := s.sess.Render(req)
	if err != nil {
		s.metrics.charts.WithLabelValues(label, "error").Inc()
		s.fail(w, err)
		return
	}
	switch v := res.(type) {
	case charts.Unavailable:
		s.metrics.charts.WithLabelValues(label, "unavailable").Inc()
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
			charts.Unavailable
		}{Status: "unavailable", Unavailable: v})
	case *charts.Chart:
		var buf bytes.Buffer
		if err := render.Write(&buf, v, format, s.opt.Render); err != nil {
			s.metrics.charts.WithLabelValues(label, "error").Inc()
			s.fail(w, fmt.Errorf("render %s: %w", req.Name, err))
			return
		}
		s.metrics.charts.WithLabelValues(label, "ok").Inc()
		w.Header().Set("Content-Type", format.ContentType())
		_, _ = w.Write(buf.Bytes())
	}
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	t, err := s.sess.Table()
	if err != nil {
		s.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, t); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportName))
	_, _ = w.Write(buf.Bytes())
}
