package providers

import (
	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/service"
	"github.com/faithconnect/bookstack-sync/internal/validation"
)

// SyncServiceHandle wraps the sync service so background runs are canceled on shutdown.
type SyncServiceHandle struct {
	*service.SyncService
}

// Shutdown implements do.Shutdownable.
func (h *SyncServiceHandle) Shutdown() error {
	return stopWithin("sync service", syncDrainTimeout, waitFor(h.SyncService.Shutdown))
}

// ProvideSyncService provides the book sync service.
func ProvideSyncService(i do.Injector) (*SyncServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	source := do.MustInvoke[*SourceClient](i)
	dest := do.MustInvoke[*DestinationClient](i)
	covers := do.MustInvoke[*bookstack.Downloader](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewSyncService(
		source.Client,
		dest.Client,
		covers,
		storeHandle.Runs,
		validator,
		service.SyncOptions{
			PageWorkers:    cfg.Sync.PageWorkers,
			MarkdownBodies: cfg.Sync.MarkdownBodies,
		},
		log.Logger,
	)

	return &SyncServiceHandle{SyncService: svc}, nil
}

// ProvideCatalogService provides read access to the source instance.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	source := do.MustInvoke[*SourceClient](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(source.Client, log.Logger), nil
}
