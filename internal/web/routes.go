package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-matcher/internal/web/handlers"
	"github.com/kozaktomas/face-matcher/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	healthHandler := handlers.NewHealthHandler(s.engine.Name, s.engine)
	configHandler := handlers.NewConfigHandler(s.config)
	matchHandler := handlers.NewMatchHandler(s.config, s.engine.Detector, s.engine.Searcher, s.jobManager)
	galleryHandler := handlers.NewGalleryHandler(s.config, s.gallery)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		r.Get("/config", configHandler.Get)

		// Matching
		r.Post("/face/detect-and-search", matchHandler.DetectAndSearch)
		r.Post("/match", matchHandler.Start)
		r.Get("/match/{jobId}", matchHandler.Status)
		r.Get("/match/{jobId}/events", matchHandler.Events)

		// Reference database
		r.Get("/face/database/list", galleryHandler.List)
		r.Post("/face/database/add", galleryHandler.Add)
		r.Put("/face/database/update/{person_id}", galleryHandler.Update)
		r.Delete("/face/database/delete/{person_id}", galleryHandler.Delete)
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// contentTypes maps static asset extensions to their content type
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
}

func contentTypeFor(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		if ct, ok := contentTypes[strings.ToLower(path[i:])]; ok {
			return ct
		}
	}
	return "application/octet-stream"
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	path := r.URL.Path
	if path == "/" {
		path = "/index.html"
	}

	// Try to open the file
	f, err := fs.Open(path)
	if err == nil {
		defer f.Close()

		stat, err := f.Stat()
		if err == nil && !stat.IsDir() {
			w.Header().Set("Content-Type", contentTypeFor(path))

			// Add cache headers for static assets
			if strings.HasPrefix(path, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=3600")
			}

			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	// For SPA routing, serve index.html for non-asset paths
	if strings.HasPrefix(path, "/assets/") {
		http.NotFound(w, r)
		return
	}
	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "frontend not available", http.StatusInternalServerError)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}
