package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hotel-concierge/internal/ai"
	appsvc "hotel-concierge/internal/app"
	"hotel-concierge/internal/cache"
	"hotel-concierge/internal/config"
	"hotel-concierge/internal/knowledge"
	"hotel-concierge/internal/ledger"
	"hotel-concierge/internal/pkg/logger"
	"hotel-concierge/internal/pkg/pdfextract"
	mysqlClient "hotel-concierge/internal/platform/mysql"
	rabbitmqClient "hotel-concierge/internal/platform/rabbitmq"
	redisClient "hotel-concierge/internal/platform/redis"
	"hotel-concierge/internal/repository"
	"hotel-concierge/internal/worker"
	"hotel-concierge/internal/workflow"
)

// App owns every long-lived component. The in-memory stores live exactly as
// long as the App; optional infrastructure is nil when disabled.
type App struct {
	Config *config.Config
	Log    *zap.Logger

	Ledger    *ledger.Ledger
	Topics    *ledger.TopicTally
	Knowledge *knowledge.Holder

	Responder appsvc.ChatResponder
	Forwarder appsvc.EscalationForwarder
	Guard     appsvc.EscalationGuard
	Publisher appsvc.ArchivePublisher
	Extractor appsvc.TextExtractor

	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	ArchiveWorker *worker.ArchiveWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.File, cfg.App.Env == "prod")
	return NewWithConfig(ctx, cfg, log)
}

// NewWithConfig connects only the infrastructure enabled in cfg.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		Config:    cfg,
		Log:       log,
		Ledger:    ledger.New(ledger.WithRecentCap(cfg.Ledger.RecentCap)),
		Topics:    ledger.NewTopicTally(cfg.Ledger.CountUncategorized),
		Knowledge: knowledge.NewHolder(),
		Extractor: pdfextract.Extractor{},
		Guard:     cache.NewMemoryEscalationGuard(cfg.DedupeWindow()),
		StartedAt: time.Now(),
	}

	webhook := workflow.NewWebhookClient(cfg.Workflow.ChatURL, cfg.Workflow.EscalateURL, cfg.WorkflowTimeout())
	a.Forwarder = webhook
	switch cfg.Workflow.Mode {
	case config.ModeLLM:
		a.Responder = ai.NewResponder(ai.ChatConfig{
			BaseURL:    cfg.LLM.BaseURL,
			APIKey:     cfg.LLM.APIKey,
			Model:      cfg.LLM.Model,
			HotelName:  cfg.App.HotelName,
			MaxContext: cfg.LLM.MaxContextMessage,
			Timeout:    cfg.WorkflowTimeout(),
		})
	default:
		a.Responder = webhook
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
		a.Guard = cache.NewRedisEscalationGuard(redisCli, cfg.DedupeWindow())
	}

	if cfg.RabbitMQ.Enabled {
		if err := a.startArchive(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	log.Info("app initialized",
		zap.String("workflow_mode", cfg.Workflow.Mode),
		zap.Bool("redis", a.Redis != nil),
		zap.Bool("archive", a.ArchiveWorker != nil),
		zap.Bool("admin_auth", cfg.Auth.AdminPasswordHash != ""),
	)
	return a, nil
}

func (a *App) startArchive(ctx context.Context) error {
	mysqlDB, err := mysqlClient.New(ctx, a.Config.MySQLDSN())
	if err != nil {
		return err
	}
	a.MySQL = mysqlDB

	mqConn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.MQConn = mqConn

	queue := a.Config.RabbitMQ.ArchiveQueue
	archiveWorker := worker.NewArchiveWorker(mqConn, repository.NewArchiveRepository(mysqlDB), queue, a.Log)
	if err := archiveWorker.Start(ctx); err != nil {
		return fmt.Errorf("start archive worker failed: %w", err)
	}
	a.ArchiveWorker = archiveWorker
	a.Publisher = rabbitmqClient.NewArchivePublisher(mqConn, queue)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}
