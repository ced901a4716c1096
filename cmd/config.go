package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	RateLimitBackend     string        `env:"RATE_LIMIT_BACKEND,default=local"`
	RateLimitCapacity    int           `env:"RATE_LIMIT_CAPACITY,default=30"`
	RateLimitWindow      time.Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
	RedisAddr            string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword        string        `env:"REDIS_PASSWORD"`
	PageSize             int           `env:"PAGE_SIZE,default=20"`
	PageCap              int           `env:"PAGE_CAP,default=100"`
	EventBufferSize      int           `env:"EVENT_BUFFER_SIZE,default=1024"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=5s"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL,default=5m"`
	SweepMaxIdle         time.Duration `env:"SWEEP_MAX_IDLE,default=30m"`
}
