package data

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/conf"
	"github.com/lk2023060901/market-research-backend/internal/pkg/database"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/minio"
	"github.com/lk2023060901/market-research-backend/internal/pkg/redis"
	researchdata "github.com/lk2023060901/market-research-backend/internal/research/data"
)

// Data holds the shared infrastructure clients. A nil field means the
// backend is disabled in configuration.
type Data struct {
	DB          *database.DB
	RedisClient *redis.Client
	MinIOClient *minio.Client
	Logger      *logger.Logger
}

// NewData connects every enabled backend. The returned cleanup closes
// whatever was opened.
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{Logger: log}
	cleanup := func() {
		log.Info("cleaning up data resources")
		if d.DB != nil {
			if err := d.DB.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}
		}
		if d.RedisClient != nil {
			if err := d.RedisClient.Close(); err != nil {
				log.Warn("failed to close redis", zap.Error(err))
			}
		}
		if d.MinIOClient != nil {
			_ = d.MinIOClient.Close()
		}
	}

	if config.Database.Enabled {
		db, err := initDB(&config.Database, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init database: %w", err)
		}
		d.DB = db
	}

	if config.Redis.Enabled {
		rc, err := redis.New(&config.Redis, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.RedisClient = rc
	}

	if config.MinIO.Enabled {
		mc, err := initMinIO(&config.MinIO, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
		d.MinIOClient = mc
	}

	log.Info("data layer initialized",
		zap.Bool("database", d.DB != nil),
		zap.Bool("redis", d.RedisClient != nil),
		zap.Bool("minio", d.MinIOClient != nil),
	)
	return d, cleanup, nil
}

func initDB(cfg *database.Config, log *logger.Logger) (*database.DB, error) {
	db, err := database.New(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&researchdata.SessionPO{}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initMinIO(cfg *minio.Config, log *logger.Logger) (*minio.Client, error) {
	mc, err := minio.NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mc.EnsureBucket(ctx); err != nil {
		_ = mc.Close()
		return nil, err
	}
	return mc, nil
}
