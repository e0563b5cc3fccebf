package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/alimasry/lumina/workspace"
)

// HandlerOptions configure the outer HTTP surface.
type HandlerOptions struct {
	// StaticDir is served at "/" when set.
	StaticDir string
	// CORSOrigins lists the origins allowed to call the API. Empty allows
	// any origin.
	CORSOrigins []string
}

// NewHandler creates the HTTP handler with all routes.
func NewHandler(hub *Hub, ws *workspace.Workspace, opts HandlerOptions, logger *zap.Logger) http.Handler {
	api := http.NewServeMux()
	NewAPI(hub, ws, logger).register(api)

	mux := http.NewServeMux()
	mux.Handle("/api/", gzhttp.GzipHandler(RequestLog(logger.Named("http"))(api)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin(opts.CORSOrigins),
	}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := newClient(hub, conn)
		go client.WritePump()
		go client.ReadPump()
	})

	if opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(opts.StaticDir)))
	}

	var handler http.Handler = mux
	handler = Recovery(logger)(handler)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Accept-Language"},
	}).Handler(handler)
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}
