package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
	"github.com/yungbote/coursetrack-backend/internal/platform/mailer"
	"github.com/yungbote/coursetrack-backend/internal/platform/vimeo"
	"github.com/yungbote/coursetrack-backend/internal/realtime/bus"
)

type Clients struct {
	// SSEBus is nil when REDIS_ADDR is unset; events then stay in-process.
	SSEBus bus.Bus
	Mailer mailer.Client
	// Vimeo is nil when no access token is configured; status polling is off.
	Vimeo vimeo.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var sseBus bus.Bus
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		b, err := bus.NewRedisBus(ctx, log, bus.Config{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	// SendGrid
	mail, err := mailer.New(log, mailer.ConfigFromEnv())
	if err != nil {
		if sseBus != nil {
			_ = sseBus.Close()
		}
		return Clients{}, fmt.Errorf("init mailer: %w", err)
	}

	// Vimeo
	var vc vimeo.Client
	vcfg := vimeo.ConfigFromEnv()
	if strings.TrimSpace(vcfg.AccessToken) != "" {
		vc, err = vimeo.New(log, vcfg)
		if err != nil {
			if sseBus != nil {
				_ = sseBus.Close()
			}
			return Clients{}, fmt.Errorf("init vimeo client: %w", err)
		}
	} else {
		log.Warn("VIMEO_ACCESS_TOKEN not set; video status polling disabled")
	}

	return Clients{
		SSEBus: sseBus,
		Mailer: mail,
		Vimeo:  vc,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}
