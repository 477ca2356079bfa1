package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/proxydeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/proxydeck/internal/logger"
)

// Reload asks the cache for an immediate poll. The trigger is
// non-blocking: when a reload is already pending the caller gets a 429
// instead of queueing another one.
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Cache.TriggerReload() {
			d.Logger.Info("manual reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("reload triggered\n"))
			return
		}

		d.Logger.Warn("reload already in progress",
			logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("reload already in progress, please wait\n"))
	}
}
