package providers

import (
	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/ratelimit"
)

// SourceClient is the client bound to the instance books are read from.
type SourceClient struct {
	*bookstack.Client
}

// DestinationClient is the client bound to the instance books are written to.
type DestinationClient struct {
	*bookstack.Client
}

// ProvideOutboundLimiter provides the limiter shared by both instance clients.
// Buckets are keyed by base URL, so each instance is throttled on its own.
func ProvideOutboundLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return ratelimit.New(cfg.HTTP.RequestsPerSecond, cfg.HTTP.RequestBurst), nil
}

// ProvideSourceClient provides the source instance client.
func ProvideSourceClient(i do.Injector) (*SourceClient, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := newClient(i, bookstack.SideSource, cfg.Source)
	return &SourceClient{Client: client}, nil
}

// ProvideDestinationClient provides the destination instance client.
func ProvideDestinationClient(i do.Injector) (*DestinationClient, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := newClient(i, bookstack.SideDestination, cfg.Destination)
	return &DestinationClient{Client: client}, nil
}

// ProvideCoverDownloader provides the downloader for source cover images.
// It sends the source token only to URLs on the source origin.
func ProvideCoverDownloader(i do.Injector) (*bookstack.Downloader, error) {
	source := do.MustInvoke[*SourceClient](i)
	log := do.MustInvoke[*logger.Logger](i)
	return bookstack.NewDownloader(source.Credentials(), log.Logger), nil
}

func newClient(i do.Injector, side bookstack.Side, instance config.InstanceConfig) *bookstack.Client {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	limiter := do.MustInvoke[*ratelimit.KeyedRateLimiter](i)

	readRetries := cfg.HTTP.ReadRetries
	if readRetries == 0 {
		// Zero in config means "no retries"; the client reads zero as "default".
		readRetries = -1
	}

	creds := bookstack.NewCredentials(instance.BaseURL, instance.TokenID, instance.TokenSecret)
	return bookstack.New(side, creds, bookstack.Options{
		Timeout:      cfg.HTTP.Timeout,
		ReadRetries:  readRetries,
		RetryBackoff: cfg.HTTP.RetryBackoff,
		Limiter:      limiter,
	}, log.Logger)
}
