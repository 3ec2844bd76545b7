package bootstrap

import (
	"github.com/Danticipation/chakrai/internal/config"
	"github.com/Danticipation/chakrai/internal/handlers"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/services"
	"github.com/Danticipation/chakrai/internal/store"
)

// handlerSet holds all HTTP handlers
type handlerSet struct {
	install *handlers.InstallHandler
	session *handlers.SessionHandler
	whoami  *handlers.WhoamiHandler
}

// initializeHandlers creates all HTTP handlers
func initializeHandlers(
	cfg *config.Config,
	bindingService *services.BindingService,
	sealer *identity.Sealer,
	db *store.Store,
) handlerSet {
	return handlerSet{
		install: handlers.NewInstallHandler(bindingService, db, cfg),
		session: handlers.NewSessionHandler(bindingService, sealer, db, cfg),
		whoami:  handlers.NewWhoamiHandler(),
	}
}
