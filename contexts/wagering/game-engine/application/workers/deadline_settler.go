package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "zerosum/contexts/wagering/game-engine/application"
	"zerosum/contexts/wagering/game-engine/application/commands"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/ports"
)

// DeadlineSettler is the scheduling trigger for settlement: each cycle it
// scans for unresolved games past their deadline and settles them. Delivery
// is at-least-once; replays are absorbed by the idempotent settle path.
type DeadlineSettler struct {
	Games     ports.GameRepository
	Settler   commands.SettleUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce settles a bounded batch of due games. Per-game failures are logged
// and skipped so one poisoned game cannot stall the rest of the batch; the
// next cycle retries it.
func (w DeadlineSettler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(w.Logger)
	limit := w.BatchSize
	if limit <= 0 {
		limit = 100
	}

	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}

	due, err := w.Games.ListDueGames(ctx, now, limit)
	if err != nil {
		logger.Error("due game scan failed",
			"event", "wagering_deadline_scan_failed",
			"module", "wagering/game-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(due) == 0 {
		return nil
	}
	logger.Info("deadline settler cycle started",
		"event", "wagering_deadline_cycle_started",
		"module", "wagering/game-engine",
		"layer", "worker",
		"due_games", len(due),
	)

	for _, gameID := range due {
		result, err := w.Settler.Settle(ctx, commands.SettleCommand{GameID: gameID})
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotReady) {
				// Lost a race with the clock source; the next cycle picks it up.
				continue
			}
			logger.Error("scheduled settlement failed",
				"event", "wagering_deadline_settle_failed",
				"module", "wagering/game-engine",
				"layer", "worker",
				"game_id", gameID,
				"error", err.Error(),
			)
			continue
		}
		if result.Replayed {
			continue
		}
		logger.Info("scheduled settlement applied",
			"event", "wagering_deadline_settle_applied",
			"module", "wagering/game-engine",
			"layer", "worker",
			"game_id", gameID,
			"winning_option_id", result.Settlement.WinningOptionID,
		)
	}
	return nil
}

// Run drives RunOnce on a fixed interval until the context is cancelled.
func (w DeadlineSettler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				return err
			}
		}
	}
}
