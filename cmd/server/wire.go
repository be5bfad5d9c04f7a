//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sectify/sectify/internal/auth"
	"github.com/sectify/sectify/internal/config"
	"github.com/sectify/sectify/internal/domain/authz"
	sectifycrypto "github.com/sectify/sectify/internal/domain/crypto"
	"github.com/sectify/sectify/internal/domain/hls"
	"github.com/sectify/sectify/internal/domain/keyalias"
	"github.com/sectify/sectify/internal/domain/track"
	"github.com/sectify/sectify/internal/domain/transcode"
	"github.com/sectify/sectify/internal/domain/user"
	"github.com/sectify/sectify/internal/infrastructure/database"
	trackrepo "github.com/sectify/sectify/internal/infrastructure/repository/track"
	userrepo "github.com/sectify/sectify/internal/infrastructure/repository/user"
	"github.com/sectify/sectify/internal/infrastructure/storage"
	"github.com/sectify/sectify/internal/interfaces/httpserver"
	"github.com/sectify/sectify/internal/interfaces/httpserver/handlers"
	"github.com/sectify/sectify/internal/logging"
	"github.com/sectify/sectify/internal/pipeline"
	"github.com/sectify/sectify/internal/worker"
)

// masterSecretBytes and ipSecretBytes are both []byte underneath, but wire
// resolves providers by type, so each gets its own named type rather than
// colliding on plain []byte.
type masterSecretBytes []byte
type ipSecretBytes []byte

var trackSet = wire.NewSet(
	trackrepo.NewRepository,
	wire.Bind(new(track.Repository), new(*trackrepo.Repository)),
	provideStorage,
	provideTrackService,
)

var userSet = wire.NewSet(
	userrepo.NewRepository,
	wire.Bind(new(user.Repository), new(*userrepo.Repository)),
	provideUserService,
)

// BuildApplication assembles Sectify with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logging.New,
		provideMasterSecret,
		provideIPSecret,
		newDatabaseConfig,
		newGormDB,
		trackSet,
		userSet,
		provideTokenService,
		provideKeyAliasStore,
		providePackager,
		provideTranscoder,
		provideDecodePool,
		providePipeline,
		provideAuthzService,
		provideHandlerProvider,
		provideHTTPServer,
		NewApplication,
	)
	return nil, nil
}

func provideMasterSecret(cfg *config.Config) masterSecretBytes {
	return masterSecretBytes(cfg.MasterSecret)
}

func provideIPSecret(ms masterSecretBytes) ipSecretBytes {
	return ipSecretBytes(sectifycrypto.DeriveIPSecret([]byte(ms)))
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DBURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func provideStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (track.Storage, error) {
	if cfg.IsLocalStorage() {
		return storage.NewLocalStorage(cfg, log)
	}
	return storage.NewS3Storage(ctx, cfg, log)
}

func provideTrackService(repo track.Repository, stor track.Storage, ms masterSecretBytes, log zerolog.Logger) *track.Service {
	return track.NewService(repo, stor, []byte(ms), log)
}

func provideUserService(repo user.Repository, ms masterSecretBytes, log zerolog.Logger, cfg *config.Config) *user.Service {
	return user.NewService(repo, []byte(ms), log, cfg.LoginFailThreshold, cfg.LoginFailWindow)
}

func provideTokenService(ms masterSecretBytes, cfg *config.Config) *auth.Service {
	return auth.NewService([]byte(ms), cfg.AccessTokenTTL(), cfg.MFATokenTTL())
}

func provideKeyAliasStore() *keyalias.Store {
	return keyalias.New()
}

func providePackager(cfg *config.Config, ms masterSecretBytes, aliases *keyalias.Store) *hls.Packager {
	return hls.New(cfg.HLSRoot, []byte(ms), aliases)
}

func provideTranscoder() transcode.Transcoder {
	return transcode.NewWAVDecoder()
}

func provideDecodePool(cfg *config.Config, log zerolog.Logger) *worker.Pool {
	return worker.NewPool(worker.Config{WorkerCount: cfg.WorkerPoolSize, QueueCapacity: cfg.PipelineCapacity}, log)
}

func providePipeline(packager *hls.Packager, cfg *config.Config, log zerolog.Logger) *pipeline.Pipeline {
	return pipeline.New(packager, cfg.PipelineCapacity, log)
}

func provideAuthzService(tracks *track.Service) *authz.Service {
	return authz.NewService(handlers.TrackLookup(tracks))
}

func provideHandlerProvider(
	cfg *config.Config,
	users *user.Service,
	tokens *auth.Service,
	authzSvc *authz.Service,
	tracks *track.Service,
	aliases *keyalias.Store,
	transcoder transcode.Transcoder,
	decodePool *worker.Pool,
	pl *pipeline.Pipeline,
	ips ipSecretBytes,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewProvider(cfg, users, tokens, authzSvc, tracks, aliases, transcoder, decodePool, pl, []byte(ips), log)
}

func provideHTTPServer(cfg *config.Config, log zerolog.Logger, provider *handlers.Provider, tokens *auth.Service, ips ipSecretBytes) *httpserver.HttpServer {
	return httpserver.New(cfg, log, provider, tokens, []byte(ips))
}
