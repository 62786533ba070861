package app

import (
	"context"
	"strings"
	"time"

	"chorebot/internal/config"
	logx "chorebot/pkg/logx"
)

func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the latest config matters.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(ctx, last, cfg)
			last = cfg
		}
	}
}

// apply pushes a validated config into the running components. Settings
// read only at startup are reported, not applied.
func (a *App) apply(ctx context.Context, prev, cfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, cfg)
	if restart := config.RequiresRestart(prev, cfg); len(restart) > 0 {
		a.log.Warn("config change needs a restart to take effect", logx.Strings("keys", restart))
	}

	a.logs.Apply(mapLogConfig(cfg))
	a.cmdm.SetOwners(cfg.Telegram.OwnerUserIDs)

	if err := a.sched.Apply(mapReminderConfig(cfg)); err != nil {
		a.log.Warn("invalid reminders config; keeping previous", logx.Err(err))
	}
	a.hh.SetLocation(a.sched.Location())

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		wasEnabled := a.notif.Enabled()
		a.notif.Apply(ncfg)
		switch {
		case wasEnabled && !ncfg.Enabled:
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !wasEnabled && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config reloaded", fields...)
	} else {
		a.log.Info("config reloaded (no changes)")
	}
}
