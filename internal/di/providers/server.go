package providers

import (
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/api"
	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	return stopWithin("http server", httpDrainTimeout, h.Server.Shutdown)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	syncHandle := do.MustInvoke[*SyncServiceHandle](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	source := do.MustInvoke[*SourceClient](i)
	dest := do.MustInvoke[*DestinationClient](i)

	instances := make(map[bookstack.Side]string, 2)
	for _, c := range []*bookstack.Client{source.Client, dest.Client} {
		instances[c.Side()] = c.BaseURL()
	}

	services := &api.Services{
		Sync:      syncHandle.SyncService,
		Catalog:   catalogService,
		Store:     storeHandle.Store,
		Instances: instances,
	}

	handler := api.NewServer(services, api.Options{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RateLimit:          cfg.Server.RateLimit,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
