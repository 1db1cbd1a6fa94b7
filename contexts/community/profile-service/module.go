package profileservice

import (
	"log/slog"

	httpadapter "zerosum/contexts/community/profile-service/adapters/http"
	"zerosum/contexts/community/profile-service/adapters/memory"
	"zerosum/contexts/community/profile-service/application/commands"
	"zerosum/contexts/community/profile-service/application/queries"
	"zerosum/contexts/community/profile-service/application/workers"
	"zerosum/contexts/community/profile-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Profiles commands.ProfileUseCase
	Consumer workers.SettlementConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Profiles   ports.ProfileRepository
	Ranking    ports.RankingIndex
	Dedup      ports.EventDedupStore
	Subscriber ports.EventSubscriber
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	profileUseCase := commands.ProfileUseCase{
		Profiles: deps.Profiles,
		Ranking:  deps.Ranking,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Logger:   deps.Logger,
	}
	readUseCase := queries.ProfileUseCase{
		Profiles: deps.Profiles,
		Ranking:  deps.Ranking,
		Logger:   deps.Logger,
	}
	consumer := workers.SettlementConsumer{
		Subscriber: deps.Subscriber,
		Dedup:      deps.Dedup,
		Profiles:   profileUseCase,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Reads:  readUseCase,
			Logger: deps.Logger,
		},
		Profiles: profileUseCase,
		Consumer: consumer,
	}
}

// NewInMemoryModule wires the module against the in-memory store, the wiring
// unit tests and DSN-less runs use. The returned store also satisfies the
// wagering ledger port.
func NewInMemoryModule(subscriber ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Profiles:   store,
		Dedup:      store,
		Subscriber: subscriber,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
