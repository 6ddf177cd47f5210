package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/Trushar30/AURA-Message/internal/auth"
	"github.com/Trushar30/AURA-Message/internal/broker"
	"github.com/Trushar30/AURA-Message/internal/cache"
	"github.com/Trushar30/AURA-Message/internal/db"
	"github.com/Trushar30/AURA-Message/internal/handler"
	"github.com/Trushar30/AURA-Message/internal/hub"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/Trushar30/AURA-Message/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	UserHandler         handler.UserHandler
	ConversationHandler handler.ConversationHandler
	MonitorHandler      handler.MonitorHandler
	Verifier            *auth.Verifier
	Hub                 *hub.Hub
	Registry            *prometheus.Registry
	Store               *repo.Store
	Config              Config
	Logger              *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
	publisher   *broker.KafkaPublisher
}

func BuildContainer(ctx context.Context, config *Config) (*Container, error) {
	logger, err := NewLogger(config.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	c := &Container{Config: *config, Logger: logger}

	if err := c.openStore(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	var statuses hub.StatusStore = c.Store.Users
	if config.Redis.Enabled {
		client, err := cache.NewClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.redisClient = client
		statuses = cache.NewPresenceMirror(c.Store.Users, client, config.Redis.Prefix, logger.Named("redis"))
		logger.Info("presence mirrored to redis", zap.String("addr", config.Redis.Addr))
	}

	var publisher hub.MessagePublisher
	if config.Kafka.Enabled {
		c.publisher = broker.NewKafkaPublisher(config.Kafka.Brokers, config.Kafka.TopicMessageSent, logger.Named("kafka"))
		publisher = c.publisher
		logger.Info("publishing message events to kafka", zap.Strings("brokers", config.Kafka.Brokers))
	}

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.Verifier = auth.NewVerifier(config.Auth.JWTSecret, c.Store.Users, logger.Named("auth"))

	c.Hub = hub.NewHub(hub.Dependencies{
		Verifier:      c.Verifier,
		Conversations: c.Store.Conversations,
		Messages:      c.Store.Messages,
		Statuses:      statuses,
		Publisher:     publisher,
		Metrics:       hub.NewMetrics(c.Registry),
		Logger:        logger.Named("hub"),
	}, hub.Options{
		AllowedOrigins: config.Server.AllowedOrigins,
		SendBuffer:     config.Hub.SendBuffer,
		IngressBuffer:  config.Hub.IngressBuffer,
		RateLimit:      config.Hub.RateLimit,
		RateBurst:      config.Hub.RateBurst,
	})

	userService := service.NewUserService(c.Store.Users, c.Hub.Presence(), logger.Named("users"))
	conversationService := service.NewConversationService(c.Store.Conversations, c.Store.Messages, c.Store.Users, logger.Named("conversations"))

	c.UserHandler = handler.NewUserHandler(userService)
	c.ConversationHandler = handler.NewConversationHandler(conversationService)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub))

	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	switch c.Config.Store.Driver {
	case StoreMemory:
		c.Store = repo.NewMemoryBackedStore(repo.NewMemoryStore())
		c.Logger.Warn("using in-memory store, data is lost on restart")
		return nil
	default:
		con, err := db.OpenConnection(ctx, c.Config.ChatDatabase.Uri, c.Config.ChatDatabase.Database)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		c.mongoClient = con

		store, err := repo.NewMongoStore(ctx, con, c.Logger.Named("repo"))
		if err != nil {
			return err
		}
		c.Store = store
		c.Logger.Info("connected to mongo", zap.String("database", c.Config.ChatDatabase.Database))
		return nil
	}
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.Logger.Warn("failed to flush kafka writer", zap.Error(err))
		}
	}

	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	return nil
}
