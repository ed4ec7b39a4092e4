package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"canvasboard/internal/config"
	"canvasboard/internal/domain"
	"canvasboard/internal/mongostore"
	"canvasboard/internal/secret"
	"canvasboard/internal/storage"
)

const driverMongo = "mongodb"

// repos are the board and node repositories of one backend, plus the
// func that releases it.
type repos struct {
	boards domain.BoardRepository
	nodes  domain.NodeRepository
	close  func()
}

// openRepos connects to the database selected by cfg.Driver.
func openRepos(ctx context.Context, cfg config.StorageConfig) (*repos, error) {
	switch cfg.Driver {
	case driverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("storage.mongo_uri is required for driver %q", driverMongo)
		}
		st, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return &repos{
			boards: st,
			nodes:  st,
			close: func() {
				if err := st.Close(context.Background()); err != nil {
					log.Printf("[MONGO] disconnect: %v", err)
				}
			},
		}, nil
	}

	if cfg.Password == "" && cfg.PasswordSecret != "" {
		pw, err := secret.Resolve(secretStores(), cfg.PasswordSecret)
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}
	driver, dsn, err := sqlTarget(cfg)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	log.Printf("[DB] opened %s database", driver)
	return &repos{
		boards: storage.NewBoardStore(db),
		nodes:  storage.NewNodeStore(db),
		close:  func() { db.Close() },
	}, nil
}

// sqlTarget resolves the SQL driver and DSN. An explicit DSN wins over
// the individual connection fields.
func sqlTarget(cfg config.StorageConfig) (storage.Driver, string, error) {
	params := storage.ConnParams{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		SSLMode:  cfg.SSLMode,
	}
	switch storage.Driver(cfg.Driver) {
	case storage.DriverSQLite, "":
		if cfg.DSN != "" {
			return storage.DriverSQLite, cfg.DSN, nil
		}
		return storage.DriverSQLite, filepath.Join(cfg.DataDir, "board.db"), nil
	case storage.DriverPostgres:
		if cfg.DSN != "" {
			return storage.DriverPostgres, cfg.DSN, nil
		}
		return storage.DriverPostgres, storage.BuildPostgresDSN(params), nil
	case storage.DriverMySQL:
		if cfg.DSN != "" {
			return storage.DriverMySQL, cfg.DSN, nil
		}
		return storage.DriverMySQL, storage.BuildMySQLDSN(params), nil
	}
	return "", "", fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}

// secretStores is where database passwords are looked up, environment
// first.
func secretStores() secret.Chain {
	return secret.Chain{secret.EnvStore{}, secret.NewKeychainStore()}
}
