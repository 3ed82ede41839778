package bootstrap

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"startup-standup-be/internal/config"
	"startup-standup-be/internal/controller"
	"startup-standup-be/internal/handler"
	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/internal/repository/memory"
	"startup-standup-be/internal/service"
	"startup-standup-be/internal/websocket"
	"startup-standup-be/pkg/dialogue"
	"startup-standup-be/pkg/scenario"
	"startup-standup-be/pkg/stt"

	pktNats "startup-standup-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const SessionEventsTopic = "standup_session_events"

type Container struct {
	// Controllers
	StandupController controller.IStandupController
	ObserverHandler   *handler.ObserverHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Loggers
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	hubLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "observer.log"))

	// 2. Scenario content
	catalog, err := scenario.LoadEmbedded(cfg.Scenario.Key)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load scenarios: %v", err)
	}
	active, err := catalog.Default()
	if err != nil {
		log.Fatalf("[FATAL] Scenario %q not found: %v", cfg.Scenario.Key, err)
	}
	log.Printf("[INFO] Scenario: %s (%d stages)", active.Key, len(active.Stages))

	// 3. Evaluators
	evaluators := NewEvaluatorRegistry(cfg, active.Rubric)
	if len(evaluators.Names()) == 0 {
		log.Printf("[WARN] No evaluator configured; final ranks come from scenario rules only")
	}

	engine := dialogue.NewEngine(catalog, evaluators, sysLogger, dialogue.WithEvaluatorTimeout(cfg.Evaluator.Timeout))
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, memory.DefaultCleanupInterval, cfg.Session.MaxSessions)

	var transcriber stt.Transcriber
	if cfg.Keys.OpenAI != "" {
		transcriber = stt.NewWhisperTranscriber(cfg.Keys.OpenAI, cfg.STT.WhisperModel, stt.WithBaseURL(cfg.Evaluator.OpenAIBaseURL))
		log.Printf("[INFO] Using STT: whisper (%s)", cfg.STT.WhisperModel)
	} else {
		log.Printf("[WARN] OPENAI_API_KEY not set; /api/voice will fail")
	}

	// 4. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 5. Infrastructure
	var rdb *redis.Client
	if cfg.App.RedisEnabled {
		rdb = connectRedis(cfg.App.RedisURL)
		if rdb != nil {
			c.closers = append(c.closers, func() { rdb.Close() })
		}
	}

	wsHub := websocket.NewHub(rdb, hubLogger)
	sinks := []service.EventSink{wsHub}

	if cfg.App.NatsEnabled {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			sinks = append(sinks, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	consumerService := service.NewConsumerService(pubSub, SessionEventsTopic, sysLogger, sinks...)

	standupService := service.NewStandupService(
		engine,
		sessionRepo,
		evaluators,
		transcriber,
		pubSub,
		service.StandupSettings{
			ScenarioKey:          active.Key,
			DefaultTimeLimit:     cfg.Scenario.TimeLimitSeconds,
			RecordSecondsDefault: cfg.Scenario.RecordSecondsDefault,
			EventTopic:           SessionEventsTopic,
		},
		sysLogger,
	)

	// 6. Controllers
	c.StandupController = controller.NewStandupController(standupService)
	c.ObserverHandler = handler.NewObserverHandler(standupService, wsHub, hubLogger)
	c.ConsumerService = consumerService
	c.WebSocketHub = wsHub
	c.closers = append(c.closers, func() { sysLogger.Sync(); hubLogger.Sync() })

	return c
}

// Close releases infrastructure in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (observer fanout stays local)", err)
		rdb.Close()
		return nil
	}
	return rdb
}
