package providers

import (
	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

// StoreHandle wraps the run journal with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the run journal.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Store.DataPath, log.Logger)
	if err != nil {
		return nil, err
	}

	if cfg.Store.DataPath == "" {
		log.Info("Run journal kept in memory")
	} else {
		log.Info("Run journal opened", "path", cfg.Store.DataPath)
	}

	return &StoreHandle{Store: db}, nil
}
