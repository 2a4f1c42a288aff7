package main

import (
	"context"
	"log"
	"os"
	"time"

	"yodabot/internal/ai"
	"yodabot/internal/api"
	"yodabot/internal/chat"
	"yodabot/internal/config"
	"yodabot/internal/gate"
	"yodabot/internal/redis"
	"yodabot/internal/search"
	"yodabot/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("YODABOT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("YODABOT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	provider := os.Getenv("YODABOT_PROVIDER")
	if provider == "" {
		provider = "openai"
	}
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		log.Fatalf("provider %s not configured", provider)
	}
	completer, err := ai.NewModel(context.Background(), provider, provCfg)
	if err != nil {
		log.Fatalf("init completion provider: %v", err)
	}

	store := chat.NewStore(db, dbType)
	controller := chat.NewController(store, cfg.BasicConfig.BotName)
	searcher := search.NewClient(cfg.Search)
	engine := chat.NewEngine(controller, completer, chat.NewSearchRegistry(searcher))

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	store.StartSweeper(sweepCtx, time.Duration(cfg.BasicConfig.SweepInterval)*time.Minute)

	var replyGate gate.Gate
	if cfg.BasicConfig.GateBackend == "redis" {
		rdb, err := redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		replyGate = gate.NewRedis(rdb)
	} else {
		replyGate = gate.NewMemory()
	}

	handlers := api.NewHandler(controller, engine, replyGate, cfg.BasicConfig.StopMissingFatal)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
