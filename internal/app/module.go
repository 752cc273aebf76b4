package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/clovigo/internal/accounts"
	"github.com/shandysiswandi/clovigo/internal/catalog"
	"github.com/shandysiswandi/clovigo/internal/notification"
)

func (a *App) initModules() {
	if err := catalog.New(catalog.Dependency{
		Router:    a.router,
		Ready:     a.ready,
		Validator: a.validator,
	}); err != nil {
		slog.Error("failed to init module catalog", "error", err)
		os.Exit(1)
	}

	if a.config.GetBool("modules.accounts.enabled") {
		if err := accounts.New(accounts.Dependency{
			DBConn:      a.dbConn,
			Router:      a.router,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Storage:     a.storage,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			HMAC:        a.hmac,
			Bcrypt:      a.bcrypt,
			Clock:       a.clock,
			Validator:   a.validator,
			JWT:         a.jwt,
		}); err != nil {
			slog.Error("failed to init module accounts", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
