package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"piiquante/application/commands/bus"
	commandhandlers "piiquante/application/commands/handlers"
	"piiquante/application/ports"
	querybus "piiquante/application/queries/bus"
	queryhandlers "piiquante/application/queries/handlers"
	"piiquante/application/services"
	domainconfig "piiquante/domain/config"
	"piiquante/infrastructure/config"
	"piiquante/infrastructure/messaging/eventbridge"
	"piiquante/infrastructure/persistence/dynamodb"
	"piiquante/infrastructure/persistence/memory"
	"piiquante/infrastructure/storage/filesystem"
	"piiquante/interfaces/http/rest"
	"piiquante/interfaces/http/rest/middleware"
	"piiquante/pkg/auth"
	pkgerrors "piiquante/pkg/errors"
	"piiquante/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", cfg.ServiceName)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Every AWS call becomes an X-Ray subsegment of the request
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}

	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig returns the business rules
func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideSauceRepository creates the sauce store selected by STORAGE_BACKEND
func ProvideSauceRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.SauceRepository {
	if cfg.StorageBackend == "memory" {
		logger.Warn("Using in-memory sauce storage, data is lost on restart")
		return memory.NewSauceRepository()
	}
	return dynamodb.NewSauceRepository(client, cfg.DynamoDBTable, logger)
}

// ImageFS is the filesystem holding uploaded images, rooted at IMAGE_DIR
type ImageFS afero.Fs

// ProvideImageFS creates the image directory and returns a filesystem confined to it
func ProvideImageFS(cfg *config.Config) (ImageFS, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(cfg.ImageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory %s: %w", cfg.ImageDir, err)
	}
	return afero.NewBasePathFs(osFs, cfg.ImageDir), nil
}

// ProvideBlobStore creates the image store
func ProvideBlobStore(fs ImageFS, cfg *config.Config, domainCfg *domainconfig.DomainConfig, logger *zap.Logger) ports.BlobStore {
	return filesystem.NewBlobStore(fs, cfg.PublicBaseURL, domainCfg, logger)
}

// ProvideEventPublisher creates the EventBridge publisher.
// Without an event bus name events are not published.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		logger.Info("EVENT_BUS_NAME not set, domain events are not published")
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates the CloudWatch metrics publisher
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideCollector creates the Prometheus collector behind /metrics
func ProvideCollector(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(strings.ToLower(cfg.MetricsNamespace))
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(cfg.ServiceName, cfg.EnableTracing)
}

// ProvideInMemoryCache creates the read cache for sauce views
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}

// lifecycleMetrics sends business events to Prometheus and the blob leak
// count to CloudWatch as well, where alarms watch it
type lifecycleMetrics struct {
	*observability.Collector
	cloudwatch *observability.Metrics
}

func (m lifecycleMetrics) BlobLeaked(reason string) {
	m.Collector.BlobLeaked(reason)
	m.cloudwatch.RecordBlobLeak(context.Background(), reason)
}

// ProvideSauceLifecycle creates the lifecycle manager
func ProvideSauceLifecycle(
	repo ports.SauceRepository,
	blobs ports.BlobStore,
	publisher ports.EventPublisher,
	cache ports.Cache,
	collector *observability.Collector,
	metrics *observability.Metrics,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.SauceLifecycle {
	return services.NewSauceLifecycle(
		repo,
		blobs,
		publisher,
		cache,
		lifecycleMetrics{Collector: collector, cloudwatch: metrics},
		domainCfg,
		logger,
	)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	lifecycle *services.SauceLifecycle,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.TracingMiddleware(tracer),
		bus.MetricsMiddleware(metrics),
	)

	if err := commandhandlers.RegisterAll(commandBus, lifecycle); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	lifecycle *services.SauceLifecycle,
	cache ports.Cache,
	collector *observability.Collector,
	cfg *config.Config,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(
		querybus.MetricsMiddleware(collector),
		querybus.CachingMiddleware(cache, cfg.CacheTTLSeconds, collector),
	)

	if err := queryhandlers.RegisterAll(queryBus, lifecycle); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}

// RateLimiters holds the limiters used by the auth middleware.
// Local is set when the limits are kept in process and needs its
// eviction loop started.
type RateLimiters struct {
	IP    auth.RateLimiter
	User  auth.RateLimiter
	Local *auth.TokenBucketLimiter
}

// ProvideRateLimiters keeps limits in DynamoDB on Lambda, where every
// instance would otherwise count separately, and in process elsewhere
func ProvideRateLimiters(client *awsdynamodb.Client, cfg *config.Config) RateLimiters {
	if cfg.IsLambda && cfg.StorageBackend == "dynamodb" {
		shared := auth.NewDistributedRateLimiter(client, cfg.DynamoDBTable, cfg.RateLimitPerMinute, time.Minute)
		return RateLimiters{
			IP:   auth.NewIPRateLimiter(shared),
			User: auth.NewUserRateLimiter(shared),
		}
	}

	local := auth.NewPerMinuteLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	return RateLimiters{
		IP:    auth.NewIPRateLimiter(local),
		User:  auth.NewUserRateLimiter(local),
		Local: local,
	}
}

// ProvideJWTValidator creates the bearer token validator.
// Without a secret only gateway-authorized requests are accepted.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, bearer tokens are rejected")
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideErrorHandler creates the HTTP error handler; server errors are
// attached to the request's X-Ray segment
func ProvideErrorHandler(tracer *observability.Tracer, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger).WithErrorRecorder(tracer)
}

// ProvideAuthConfig configures the authentication middleware
func ProvideAuthConfig(
	validator *auth.JWTValidator,
	limiters RateLimiters,
	errorHandler *pkgerrors.ErrorHandler,
	cfg *config.Config,
	logger *zap.Logger,
) middleware.AuthConfig {
	return middleware.AuthConfig{
		Validator:          validator,
		TrustGateway:       cfg.IsLambda,
		IPLimiter:          limiters.IP,
		UserLimiter:        limiters.User,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ErrorHandler:       errorHandler,
		Logger:             logger,
	}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	blobs ports.BlobStore,
	imageFS ImageFS,
	authCfg middleware.AuthConfig,
	collector *observability.Collector,
	tracer *observability.Tracer,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(cfg, commandBus, queryBus, blobs, imageFS, authCfg, collector, tracer, errorHandler, logger)
}
