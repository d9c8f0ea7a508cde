package api

import (
	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/service"
	"github.com/faithconnect/bookstack-sync/internal/store"
)

// Services groups the dependencies the API server exposes over HTTP.
type Services struct {
	Sync    *service.SyncService
	Catalog *service.CatalogService
	// Store is checked by the health endpoint. Nil reports the journal as not configured.
	Store *store.Store
	// Instances maps each side to its configured base URL.
	Instances map[bookstack.Side]string
}
