// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"warscan/internal/analyze"
	"warscan/internal/imageio"
	"warscan/internal/segment"
)

type App struct {
	Analyzer       *analyze.Analyzer
	DebugDir       string
	MaxUploadBytes int64
	Log            *slog.Logger

	mu       sync.Mutex
	sessions map[string]segment.Memory
}

func NewApp(a *analyze.Analyzer, debugDir string, maxUpload int64, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &App{
		Analyzer:       a,
		DebugDir:       debugDir,
		MaxUploadBytes: maxUpload,
		Log:            log,
		sessions:       make(map[string]segment.Memory),
	}
}

func (app *App) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", pingHandler)
	r.Post("/api/analyze", app.AnalyzeHandler)
	r.Post("/api/sessions/{session}/reset", app.ResetSessionHandler)

	if app.DebugDir != "" {
		fileServer := http.FileServer(http.Dir(app.DebugDir))
		r.Handle("/debug/*", http.StripPrefix("/debug", fileServer))
	}

	return r
}

func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

type analyzeResponse struct {
	Session string          `json:"session"`
	Report  *analyze.Report `json:"report"`
	Debug   string          `json:"debug,omitempty"`
}

// AnalyzeHandler accepts a multipart screenshot upload and returns the row
// analysis. Passing the session id from a previous response reuses the
// remembered dialog layout for consecutive frames of one report.
func (app *App) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadBytes)
	if err := r.ParseMultipartForm(app.MaxUploadBytes); err != nil {
		app.jsonError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	file, header, err := r.FormFile("screenshot")
	if err != nil {
		app.jsonError(w, http.StatusBadRequest, "missing screenshot file")
		return
	}
	defer file.Close()

	if !imageio.IsSupported(header.Filename) {
		app.jsonError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported image type %q", filepath.Ext(header.Filename)))
		return
	}

	tmp, err := os.CreateTemp("", "warscan-*"+strings.ToLower(filepath.Ext(header.Filename)))
	if err != nil {
		app.jsonError(w, http.StatusInternalServerError, "temp file")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		app.jsonError(w, http.StatusInternalServerError, "spool upload")
		return
	}
	tmp.Close()

	session := r.FormValue("session")
	if session == "" {
		session = uuid.NewString()
	}
	mem := app.memoryFor(session)

	var dbg *segment.DebugSink
	var debugURL string
	if app.DebugDir != "" && r.FormValue("debug") == "1" {
		dir := filepath.Join(app.DebugDir, session)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			dbg = segment.NewDebugSink(dir, app.Log)
			debugURL = "/debug/" + session + "/"
		}
	}

	report, mem, err := app.Analyzer.AnalyzeFile(tmp.Name(), mem, dbg)
	if err != nil {
		app.Log.Error("analyze failed", "session", session, "err", err)
		app.jsonError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	report.Source = header.Filename
	app.storeMemory(session, mem)

	app.writeJSON(w, http.StatusOK, analyzeResponse{
		Session: session,
		Report:  report,
		Debug:   debugURL,
	})
}

// ResetSessionHandler drops the remembered layout of a session. Call it
// when the client switches to a different report.
func (app *App) ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	session := chi.URLParam(r, "session")
	app.mu.Lock()
	delete(app.sessions, session)
	app.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) memoryFor(session string) segment.Memory {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.sessions[session]
}

func (app *App) storeMemory(session string, mem segment.Memory) {
	app.mu.Lock()
	app.sessions[session] = mem
	app.mu.Unlock()
}

func (app *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Log.Error("write response", "err", err)
	}
}

func (app *App) jsonError(w http.ResponseWriter, status int, msg string) {
	app.writeJSON(w, status, map[string]string{"error": msg})
}
