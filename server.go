package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	liveReloadPath          = "/__livereload"
	serverShutdownTimeout   = 5 * time.Second
	serverReadHeaderTimeout = 10 * time.Second
)

const liveReloadScript = `<script>(function(){var l=window.location;` +
	`var ws=new WebSocket((l.protocol==="https:"?"wss://":"ws://")+l.host+"` + liveReloadPath + `");` +
	`ws.onmessage=function(e){if(e.data==="reload"){l.reload();}};})();</script>`

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Preview server, any origin may connect
	},
}

// previewServer serves the built site from a list of base directories,
// the first one holding a file wins. With live reload on, HTML pages get a
// script that reloads them when the hub broadcasts.
type previewServer struct {
	conf ServerConf
	hub  *reloadHub
	log  zerolog.Logger
}

func newPreviewServer(conf ServerConf, hub *reloadHub, log zerolog.Logger) *previewServer {
	return &previewServer{conf: conf, hub: hub, log: log}
}

func (ps *previewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	if ps.conf.LiveReloadEnabled() {
		mux.Handle(liveReloadPath, ps.hub)
	}
	mux.HandleFunc("/", ps.serveStatic)
	return logRequests(ps.log, noCache(mux))
}

// ListenAndServe blocks until ctx is cancelled or the server fails.
func (ps *previewServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ps.conf.Addr(),
		Handler:           ps.Handler(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		ps.log.Info().Str("addr", srv.Addr).Strs("bases", ps.conf.Bases).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		ps.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (ps *previewServer) serveStatic(w http.ResponseWriter, r *http.Request) {
	upath := path.Clean("/" + r.URL.Path)

	for _, base := range ps.conf.Bases {
		name := filepath.Join(base, filepath.FromSlash(upath))
		info, err := os.Stat(name)
		if err != nil {
			continue
		}
		if info.IsDir() {
			index := filepath.Join(name, "index.html")
			if _, err := os.Stat(index); err != nil {
				continue
			}
			if !strings.HasSuffix(r.URL.Path, "/") {
				http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
				return
			}
			name = index
		}

		if ps.conf.LiveReloadEnabled() && filepath.Ext(name) == ".html" {
			ps.serveHTML(w, r, name)
			return
		}
		http.ServeFile(w, r, name)
		return
	}

	http.NotFound(w, r)
}

func (ps *previewServer) serveHTML(w http.ResponseWriter, r *http.Request, name string) {
	page, err := os.ReadFile(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(injectLiveReload(page))
}

// injectLiveReload puts the reload script before the closing body tag, or
// at the end of pages that have none.
func injectLiveReload(page []byte) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i == -1 {
		return append(page, liveReloadScript...)
	}
	out := make([]byte, 0, len(page)+len(liveReloadScript))
	out = append(out, page[:i]...)
	out = append(out, liveReloadScript...)
	return append(out, page[i:]...)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func logRequests(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
	})
}

// reloadHub keeps the live reload websocket connections of open pages.
type reloadHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	log   zerolog.Logger
}

func newReloadHub(log zerolog.Logger) *reloadHub {
	return &reloadHub{
		conns: make(map[*websocket.Conn]struct{}),
		log:   log,
	}
}

func (h *reloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("live reload upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Pages never send anything; reading only notices the close.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

func (h *reloadHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

func (h *reloadHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast tells every connected page to reload.
func (h *reloadHub) Broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Debug().Int("pages", len(h.conns)).Msg("live reload")
	for conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("reload")); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *reloadHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
