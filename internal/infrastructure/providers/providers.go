package providers

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/memoryvault/vault/internal/config"
	"github.com/memoryvault/vault/internal/infrastructure/database"
	"github.com/memoryvault/vault/internal/infrastructure/gateway"
	"github.com/memoryvault/vault/internal/infrastructure/repository"
	"github.com/memoryvault/vault/internal/service"
	"github.com/memoryvault/vault/internal/usecase"
)

// NewDatabase opens a Postgres connection using the configured DSN.
func NewDatabase(conf config.Server) (*gorm.DB, error) {
	return database.NewPostgres(conf.PostgresDsn)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.MigratePostgres(db)
}

// NewRedis creates the redis client backing pointers and pub/sub.
func NewRedis(conf config.Server) *redis.Client {
	return database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
}

// NewMemcache creates a memcache client.
func NewMemcache(addr string) *memcache.Client {
	return database.NewMemcached(addr)
}

// NewContentFetcher constructs the gateway-chain fetcher.
func NewContentFetcher(conf config.Storage) *gateway.IPFSGateway {
	return gateway.NewIPFSGateway(conf.Gateways, conf.FetchTimeout())
}

// NewContentStore constructs the pinning-service uploader.
func NewContentStore(conf config.Storage) *gateway.PinningService {
	return gateway.NewPinningService(conf.PinEndpoint, conf.PinToken)
}

// NewVaultUsecase wires the full content path.
func NewVaultUsecase(db *gorm.DB, rdb *redis.Client, conf config.Storage) *usecase.VaultUsecase {
	return usecase.NewVaultUsecase(
		NewContentStore(conf),
		NewContentFetcher(conf),
		repository.NewPointerRepository(rdb),
		repository.NewDocumentLogRepository(db),
	)
}

// NewAccessUsecase wires the request workflow.
func NewAccessUsecase(db *gorm.DB, rdb *redis.Client, mc *memcache.Client) *usecase.AccessUsecase {
	return usecase.NewAccessUsecase(
		repository.NewRequestRepository(db, mc),
		repository.NewSharedAccessRepository(db),
		service.NewSignalService(rdb),
	)
}
