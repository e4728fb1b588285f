package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/b1naryth1ef/fractals"
	"github.com/b1naryth1ef/fractals/web"
)

// maxPreviewWidth bounds the width accepted by the ?width= parameter.
const maxPreviewWidth = 4096

type Server struct {
	config     *fractals.Config
	background color.Color
	mux        *http.ServeMux
}

func NewServer(config *fractals.Config) *Server {
	s := &Server{
		config:     config,
		background: config.Background(),
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(web.GetStaticContent())))
	s.mux.HandleFunc("GET /views", s.handleViews)
	s.mux.HandleFunc("GET /views/{file}", s.handleViewImage)
	s.mux.HandleFunc("GET /ws", s.handleStream)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts the HTTP server
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	log.Printf("[serve] listening on http://%s", displayAddr(addr))

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (s *Server) viewData() ([]web.ViewData, error) {
	views := []web.ViewData{}
	for _, view := range s.config.Views {
		args, err := view.Args()
		if err != nil {
			return nil, fmt.Errorf("view %q: %w", view.Name, err)
		}

		views = append(views, web.ViewData{
			Name:          view.Name,
			Image:         "views/" + view.Name + ".png",
			Width:         int(args.Width),
			Height:        int(args.Height),
			MaxIterations: int(args.MaxIterations),
			Viewport:      fmt.Sprintf("%s .. %s", args.Start, args.End),
		})
	}
	return views, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	views, err := s.viewData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data, err := json.Marshal(web.FrontendData{
		Live:       true,
		Background: fractals.HexColor(s.background),
		Accent:     fractals.HexColor(fractals.AccentColor(s.background)),
		Views:      views,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.WriteIndex(w, string(data)); err != nil {
		log.Printf("[serve] failed to write index: %v", err)
	}
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.viewData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		log.Printf("[serve] failed to write view list: %v", err)
	}
}

func (s *Server) handleViewImage(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}

	view := s.config.View(name)
	if view == nil {
		http.NotFound(w, r)
		return
	}

	width := 0
	if raw := r.URL.Query().Get("width"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxPreviewWidth {
			http.Error(w, fmt.Sprintf("width must be between 1 and %d", maxPreviewWidth), http.StatusBadRequest)
			return
		}
		width = v
	}

	args, err := view.Args()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result, err := fractals.NewRenderer(view.RenderOpts(s.config)).Render(r.Context(), args)
	if err != nil {
		log.Printf("[serve] failed to render view %s: %v", view.Name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var img image.Image = result.Image
	if width > 0 {
		img = fractals.Scale(result.Image, width)
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		log.Printf("[serve] failed to encode view %s: %v", view.Name, err)
	}
}
