package di

import (
	"piiquante/application/commands/bus"
	"piiquante/application/ports"
	querybus "piiquante/application/queries/bus"
	"piiquante/application/services"
	"piiquante/infrastructure/config"
	"piiquante/interfaces/http/rest"
	"piiquante/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	SauceRepo    ports.SauceRepository
	Blobs        ports.BlobStore
	Lifecycle    *services.SauceLifecycle
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Cache        ports.Cache
	Metrics      *observability.Metrics
	Collector    *observability.Collector
	RateLimiters RateLimiters
	Router       *rest.Router
}
