package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/dig"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/ports/dispatchtx"
	"service-dispatch/internal/repository"
	"service-dispatch/internal/repository/memory"
	"service-dispatch/internal/service/bidding"
)

const (
	dbConnectRetries = 10
	dbConnectDelay   = time.Second
)

type deliveryStore interface {
	bidding.DeliveryStore
	dispatchtx.Runner
}

// dataStore is the persistence backend selected by STORE_DRIVER.
type dataStore struct {
	Deliveries deliveryStore
	Bids       bidding.BidLedger
}

type storeOut struct {
	dig.Out

	Store  *dataStore
	Closer closer `group:"closers"`
}

func (b *ContainerBuilder) provideStore(ctx context.Context, cfg *config.Config, logger logx.Logger) (storeOut, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.Warn("using in-memory store: data does not survive a restart and is not shared between processes")
		s := memory.NewStore()
		return storeOut{Store: &dataStore{
			Deliveries: memory.NewDeliveryRepo(s),
			Bids:       memory.NewBidRepo(s),
		}}, nil
	}

	pool, err := b.dbConnect(ctx, logger, cfg.DB.DSN(), dbConnectRetries, dbConnectDelay)
	if err != nil {
		return storeOut{}, err
	}
	if err := b.migrate(cfg.DB.MigrateURL()); err != nil {
		pool.Close()
		return storeOut{}, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database schema up to date")

	return storeOut{
		Store: &dataStore{
			Deliveries: repository.NewDeliveryRepo(pool),
			Bids:       repository.NewBidRepo(pool),
		},
		Closer: closer{name: "postgres", fn: func() error {
			pool.Close()
			return nil
		}},
	}, nil
}
