package app

import (
	"time"

	"instabatch/internal/config"
	"instabatch/internal/runtime/supervisor"
)

// ---- Config ----

type Config = config.Config

var LoadConfig = config.Load

func parseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	return config.ParseDurationOrDefault(path, raw, def)
}

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.New
