package main

import (
	"campushub/internal/config"
	"campushub/internal/db"
	clog "campushub/internal/log"
	"campushub/internal/presence"
	"campushub/internal/server"
	"campushub/internal/service"
	"campushub/internal/ws"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// main 负责加载配置、初始化日志、连接存储并启动 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pstore := presence.NewStore(rdb, "campus")

	userSvc := service.NewUserService(gdb, cfg)
	chatSvc := service.NewChatService(gdb)
	groupSvc := service.NewGroupService(gdb)

	registry := ws.NewRegistry()
	gateway := ws.NewGateway(cfg, registry, chatSvc, userSvc, pstore)

	h := server.NewHandler(userSvc, chatSvc, groupSvc)
	r := server.SetupRouter(cfg, gdb, h, gateway)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
