package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/internal/controller"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/implementation"
	"ai-tutor-be/internal/repository/memory"
	"ai-tutor-be/internal/repository/unitofwork"
	"ai-tutor-be/internal/service"
	"ai-tutor-be/internal/websocket"
	"ai-tutor-be/pkg/agent"
	"ai-tutor-be/pkg/embedding"
	embeddingFactory "ai-tutor-be/pkg/embedding/factory"
	"ai-tutor-be/pkg/events"
	"ai-tutor-be/pkg/extract"
	"ai-tutor-be/pkg/knowledge"
	"ai-tutor-be/pkg/llm/factory"
	memorySvc "ai-tutor-be/pkg/memory"
	"ai-tutor-be/pkg/metrics"
	pktNats "ai-tutor-be/pkg/nats"
	"ai-tutor-be/pkg/pipeline"
	"ai-tutor-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const profileCacheTTL = 5 * time.Minute

type Container struct {
	// Controllers
	ChatController      controller.IChatController
	KnowledgeController controller.IKnowledgeController
	MemoryController    controller.IMemoryController
	ProfileController   controller.IProfileController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub
	Orchestrator    *pipeline.Orchestrator

	Registry *prometheus.Registry
	Logger   logger.ILogger

	closers []func()
}

// repositories is the storage backend picked at startup: Postgres when a DSN is
// configured, the in-memory store otherwise.
type repositories struct {
	uowFactory unitofwork.RepositoryFactory
	vectors    contract.ContentVectorRepository
	edges      contract.GraphEdgeRepository
	users      contract.UserRepository
}

func newRepositories(db *gorm.DB, sysLogger logger.ILogger) repositories {
	if db != nil {
		return repositories{
			uowFactory: unitofwork.NewRepositoryFactory(db),
			vectors:    implementation.NewContentVectorRepository(db),
			edges:      implementation.NewGraphEdgeRepository(db),
			users:      implementation.NewUserRepository(db),
		}
	}

	sysLogger.Warn("BOOTSTRAP", "No database configured, using in-memory store", nil)
	store := memory.NewStore()
	return repositories{
		uowFactory: memory.NewRepositoryFactory(store),
		vectors:    store.ContentVectors(),
		edges:      store.GraphEdges(),
		users:      store.Users(),
	}
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	c.Logger = sysLogger
	repos := newRepositories(db, sysLogger)

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(c.Registry)

	// 2. Infrastructure
	rdb := newRedis(ctx, cfg.Redis.URL, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	publishers := events.Fanout{}
	if cfg.Nats.Enabled {
		natsPub, err := pktNats.NewPublisher(cfg.Nats.URL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS publisher", map[string]interface{}{"error": err.Error()})
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "websocket.log"))
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	publishers = append(publishers, c.WebSocketHub)

	// 3. Event Bus
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	transcripts := service.NewPublisherService(cfg.App.TranscriptTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.App.TranscriptTopic, repos.uowFactory, sysLogger)

	// 4. Embedding + vector index
	embedder := embedding.NewService(
		embeddingFactory.NewProviderFactory(cfg.Embedding, cfg.Vector.Dimension),
		cfg.Vector.Dimension,
		embedding.WithCache(embedding.NewTieredCache(gocache.New(cfg.Embedding.CacheTTL, 2*cfg.Embedding.CacheTTL), rdb, cfg.Redis.CacheTTL)),
		embedding.WithTimeout(cfg.Pipeline.EmbeddingTimeout),
		embedding.WithLogger(llmLogger),
	)
	index := vectorindex.New(repos.vectors, cfg.Vector.Dimension, cfg.Pipeline.VectorTimeout, sysLogger)

	// 5. Knowledge
	graph := knowledge.NewGraphStore(repos.edges, index, cfg.Pipeline.MaxGraphDepth, sysLogger, publishers)
	ingestor := knowledge.NewIngestor(embedder, index, graph, repos.uowFactory, knowledge.IngestorConfig{
		MaxBytes:  cfg.Knowledge.IngestMaxBytes,
		LinkLimit: cfg.Knowledge.SimilarLinkLimit,
	}, sysLogger, publishers)
	searcher := knowledge.NewSearcher(embedder, index, sysLogger)
	extractor := extract.New(extract.Config{
		TikaURL:      cfg.Knowledge.TikaURL,
		FetchTimeout: cfg.Knowledge.FetchTimeout,
		MaxBytes:     cfg.Knowledge.UploadMaxBytes,
	}, sysLogger)

	// 6. Memory
	provider, err := newMemoryProvider(cfg.Memory, cfg.Pipeline.MemoryTimeout)
	if err != nil {
		c.Close()
		return nil, err
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		c.closers = append(c.closers, func() { _ = closer.Close() })
	}
	mem := memorySvc.NewService(embedder, index, provider,
		memorySvc.WithTimeout(cfg.Pipeline.MemoryTimeout),
		memorySvc.WithLogger(sysLogger),
		memorySvc.WithPublisher(publishers),
	)

	// 7. Agents + pipeline
	llmProvider, err := factory.NewLLMProvider(ctx, cfg.LLM)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	sysLogger.Info("BOOTSTRAP", "Providers configured", map[string]interface{}{
		"llm":       cfg.LLM.Provider,
		"llm_model": cfg.LLM.Model,
		"embedding": cfg.Embedding.Provider,
		"memory":    provider.Name(),
		"dimension": cfg.Vector.Dimension,
	})

	c.Orchestrator = pipeline.NewOrchestrator(embedder, mem, pipeline.Stages{
		Emotion:      agent.NewEmotionalAgent(llmProvider, cfg.Pipeline.LLMTimeout, llmLogger),
		Reasoner:     agent.NewReasoner(llmProvider, cfg.Pipeline.MaxReasoningSteps, cfg.Pipeline.LLMTimeout, llmLogger),
		Personalizer: agent.NewPersonalizer(llmProvider, cfg.Pipeline.LLMTimeout, llmLogger),
	}, pipeline.Config{
		RecallLimit:   cfg.Pipeline.RecallLimit,
		RecordTimeout: cfg.Pipeline.RecordTimeout,
	}, pipeline.WithLogger(llmLogger), pipeline.WithMetrics(m))

	// 8. Services
	users := memory.NewCachedUserRepository(repos.users, profileCacheTTL)
	chatService := service.NewChatService(users, c.Orchestrator, transcripts, publishers, sysLogger)
	knowledgeService := service.NewKnowledgeService(ingestor, searcher, graph, extractor, m, sysLogger, cfg.Knowledge.UploadMaxBytes)
	memoryService := service.NewMemoryService(mem)
	profileService := service.NewProfileService(users, sysLogger)

	// 9. Controllers
	c.ChatController = controller.NewChatController(chatService, c.WebSocketHub, sysLogger)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService, cfg.Knowledge.UploadMaxBytes)
	c.MemoryController = controller.NewMemoryController(memoryService)
	c.ProfileController = controller.NewProfileController(profileService)

	return c, nil
}

// Close waits for in-flight memory writes, then releases infrastructure in reverse
// order of creation.
func (c *Container) Close() {
	if c.Orchestrator != nil {
		c.Orchestrator.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func newRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("BOOTSTRAP", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}

func newMemoryProvider(cfg config.MemoryConfig, timeout time.Duration) (memorySvc.Provider, error) {
	switch cfg.Provider {
	case "mem0":
		if cfg.Mem0Key == "" {
			return nil, fmt.Errorf("mem0 memory provider requires MEM0_API_KEY")
		}
		return memorySvc.NewMem0Provider(cfg.Mem0URL, cfg.Mem0Key, timeout), nil
	case "local", "":
		return memorySvc.NewBleveProvider()
	default:
		return nil, fmt.Errorf("unsupported memory provider: %s", cfg.Provider)
	}
}
