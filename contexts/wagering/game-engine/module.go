package gameengine

import (
	"log/slog"

	httpadapter "zerosum/contexts/wagering/game-engine/adapters/http"
	"zerosum/contexts/wagering/game-engine/adapters/memory"
	application "zerosum/contexts/wagering/game-engine/application"
	"zerosum/contexts/wagering/game-engine/application/commands"
	"zerosum/contexts/wagering/game-engine/application/queries"
	"zerosum/contexts/wagering/game-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Settle  commands.SettleUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Games       ports.GameRepository
	Votes       ports.VoteRepository
	Settlements ports.SettlementRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Locks       *application.GameLocks
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	locks := deps.Locks
	if locks == nil {
		locks = application.NewGameLocks()
	}
	gameUseCase := commands.GameUseCase{
		Games:  deps.Games,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Games:  deps.Games,
		Votes:  deps.Votes,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Locks:  locks,
		Logger: deps.Logger,
	}
	settleUseCase := commands.SettleUseCase{
		Games:       deps.Games,
		Votes:       deps.Votes,
		Settlements: deps.Settlements,
		Clock:       deps.Clock,
		IDGen:       deps.IDGen,
		Locks:       locks,
		Logger:      deps.Logger,
	}
	readUseCase := queries.GameUseCase{
		Games: deps.Games,
		Votes: deps.Votes,
		Clock: deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Games:  gameUseCase,
			Votes:  voteUseCase,
			Settle: settleUseCase,
			Reads:  readUseCase,
			Logger: deps.Logger,
		},
		Settle: settleUseCase,
	}
}

// NewInMemoryModule wires the module against the in-memory store. When ledger
// is nil the store's own balance map receives settlement deltas, which is the
// wiring unit tests use.
func NewInMemoryModule(ledger ports.Ledger, logger *slog.Logger) Module {
	store := memory.NewStore()
	store.Ledger = ledger
	module := NewModule(Dependencies{
		Games:       store,
		Votes:       store,
		Settlements: store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
