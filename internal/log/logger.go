package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局 logger，dev 环境使用易读的控制台输出，其他环境输出 JSON。
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(cw).With().Timestamp().Str("service", "campushub").Logger()
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "campushub").Logger()
}
