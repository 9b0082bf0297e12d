package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/dl-alexandre/driveshelf/internal/cache"
	"github.com/dl-alexandre/driveshelf/internal/logging"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slices"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// Server renders the cache file. Every request reads the file again, so a
// sync run is visible as soon as its rename lands.
type Server struct {
	store  *cache.Store
	logger logging.Logger
	router *gin.Engine
}

type fileView struct {
	ID           string
	Name         string
	MimeType     string
	ModifiedTime string
	WebViewLink  string
}

type folderView struct {
	ID           string
	Name         string
	ModifiedTime string
	Thumbnail    string
	Summary      string
	Files        []fileView
}

// New creates a server reading from store
func New(store *cache.Store, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		store:  store,
		logger: logger,
		router: router,
	}

	router.GET("/", s.handleHome)
	router.GET("/folders/:id", s.handleFolder)
	router.GET("/about/", s.handleStatic("about.html", "About"))
	router.GET("/experience/", s.handleStatic("work.html", "Experience"))
	router.GET("/healthz", s.handleHealth)

	apiGroup := router.Group("/api")
	apiGroup.GET("/cache", s.handleCache)

	return s, nil
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", logging.F("addr", addr), logging.F("cachePath", s.store.Path()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHome(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Title":   "Projects",
		"Folders": buildFolderViews(s.store.Load()),
	})
}

func (s *Server) handleFolder(c *gin.Context) {
	id := c.Param("id")
	entry, ok := s.store.Load()[id]
	if !ok || entry == nil {
		c.HTML(http.StatusNotFound, "notfound.html", gin.H{"Title": "Not found", "ID": id})
		return
	}
	view := buildFolderView(id, entry)
	c.HTML(http.StatusOK, "folder.html", gin.H{
		"Title":  view.Name,
		"Folder": view,
	})
}

func (s *Server) handleStatic(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, gin.H{"Title": title})
	}
}

func (s *Server) handleCache(c *gin.Context) {
	data, err := s.store.ReadRaw()
	if err != nil {
		s.logger.Error("Reading cache failed", logging.F("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func buildFolderViews(c cache.Cache) []folderView {
	views := make([]folderView, 0, len(c))
	for id, entry := range c {
		if entry == nil {
			continue
		}
		views = append(views, buildFolderView(id, entry))
	}
	slices.SortFunc(views, func(a, b folderView) int {
		if n := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return views
}

func buildFolderView(id string, entry *cache.Entry) folderView {
	view := folderView{
		ID:           id,
		Name:         entry.Name,
		ModifiedTime: entry.ModifiedTime,
		Files:        make([]fileView, 0, len(entry.Files)),
	}
	for fileID, f := range entry.Files {
		if f == nil {
			continue
		}
		if view.Thumbnail == "" && f.ThumbnailLink != nil {
			view.Thumbnail = *f.ThumbnailLink
		}
		if f.Content != nil && view.Summary == "" {
			view.Summary = *f.Content
		}
		fv := fileView{
			ID:           fileID,
			Name:         f.Name,
			MimeType:     f.MimeType,
			ModifiedTime: f.ModifiedTime,
		}
		if f.WebViewLink != nil {
			fv.WebViewLink = *f.WebViewLink
		}
		view.Files = append(view.Files, fv)
	}
	slices.SortFunc(view.Files, func(a, b fileView) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})
	return view
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logging.Field{
			logging.F("method", c.Request.Method),
			logging.F("path", c.Request.URL.Path),
			logging.F("status", c.Writer.Status()),
			logging.F("duration_ms", time.Since(start).Milliseconds()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Debug("Request served", fields...)
	}
}
