package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zerosum/contexts/wagering/game-engine/domain/entities"
	domainerrors "zerosum/contexts/wagering/game-engine/domain/errors"
	"zerosum/contexts/wagering/game-engine/ports"
)

const outboxStatusPending = "pending"
const outboxStatusPublished = "published"

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) CreateGame(ctx context.Context, game entities.Game) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := gameModelFromEntity(game)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return r.logError("wagering_repo_create_game_failed", err, "game_id", game.GameID)
		}
		for _, option := range game.Options {
			optionRow := optionModelFromEntity(option)
			if err := tx.Create(&optionRow).Error; err != nil {
				return r.logError("wagering_repo_create_option_failed", err,
					"game_id", game.GameID,
					"option_id", option.OptionID,
				)
			}
		}
		return nil
	})
}

func (r *Repository) GetGame(ctx context.Context, gameID string) (entities.Game, error) {
	var row gameModel
	err := r.db.WithContext(ctx).
		Where("id = ?", gameID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Game{}, domainerrors.ErrGameNotFound
		}
		return entities.Game{}, r.logError("wagering_repo_get_game_failed", err, "game_id", gameID)
	}

	var optionRows []optionModel
	err = r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("option_index asc").
		Find(&optionRows).
		Error
	if err != nil {
		return entities.Game{}, r.logError("wagering_repo_list_options_failed", err, "game_id", gameID)
	}

	game := row.toEntity()
	game.Options = make([]entities.Option, 0, len(optionRows))
	for _, optionRow := range optionRows {
		game.Options = append(game.Options, optionRow.toEntity())
	}
	return game, nil
}

func (r *Repository) ListDueGames(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&gameModel{}).
		Where("resolved = ? AND deadline <= ?", false, now.UTC()).
		Order("deadline asc").
		Limit(limit).
		Pluck("id", &ids).
		Error
	if err != nil {
		return nil, r.logError("wagering_repo_list_due_failed", err)
	}
	return ids, nil
}

// AdmitVote inserts the vote row and bumps option/game aggregates in one
// transaction. The unique (game_id, user_id) index enforces the
// one-vote-per-pair invariant even when two requests race past the
// application-level check.
func (r *Repository) AdmitVote(ctx context.Context, vote entities.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := voteModelFromEntity(vote)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyVoted
			}
			return r.logError("wagering_repo_admit_vote_failed", err,
				"vote_id", vote.VoteID,
				"game_id", vote.GameID,
				"user_id", vote.UserID,
			)
		}
		optionUpdate := tx.Model(&optionModel{}).
			Where("id = ? AND game_id = ?", vote.OptionID, vote.GameID).
			Updates(map[string]any{
				"total_votes": gorm.Expr("total_votes + 1"),
				"total_money": gorm.Expr("total_money + ?", vote.Money),
			})
		if optionUpdate.Error != nil {
			return r.logError("wagering_repo_option_bump_failed", optionUpdate.Error,
				"option_id", vote.OptionID,
				"game_id", vote.GameID,
			)
		}
		if optionUpdate.RowsAffected == 0 {
			return domainerrors.ErrUnknownOption
		}
		gameUpdate := tx.Model(&gameModel{}).
			Where("id = ?", vote.GameID).
			Updates(map[string]any{
				"total_money": gorm.Expr("total_money + ?", vote.Money),
				"updated_at":  vote.CastAt,
			})
		if gameUpdate.Error != nil {
			return r.logError("wagering_repo_game_bump_failed", gameUpdate.Error, "game_id", vote.GameID)
		}
		return nil
	})
}

func (r *Repository) GetVoteByIdentity(ctx context.Context, gameID string, userID string) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("wagering_repo_get_vote_failed", err,
			"game_id", gameID,
			"user_id", userID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListVotesByGame(ctx context.Context, gameID string) ([]entities.Vote, error) {
	var rows []voteModel
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("cast_at asc, id asc").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("wagering_repo_list_votes_failed", err, "game_id", gameID)
	}
	votes := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		votes = append(votes, row.toEntity())
	}
	return votes, nil
}

// ApplySettlement commits the entire resolution in one transaction: the game
// row is locked first, so a concurrent settle either blocks or observes
// ErrAlreadyResolved; the resolved marker commits atomically with every
// balance delta, which is what makes a crash retry safe.
func (r *Repository) ApplySettlement(ctx context.Context, settlement entities.Settlement, event ports.EventEnvelope) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row gameModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", settlement.GameID).
			First(&row).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrGameNotFound
			}
			return r.logError("wagering_repo_settle_lock_failed", err, "game_id", settlement.GameID)
		}
		if row.Resolved {
			return domainerrors.ErrAlreadyResolved
		}

		if err := tx.Model(&optionModel{}).
			Where("game_id = ?", settlement.GameID).
			Update("winner", gorm.Expr("id = ?", settlement.WinningOptionID)).
			Error; err != nil {
			return r.logError("wagering_repo_settle_options_failed", err, "game_id", settlement.GameID)
		}

		for _, vote := range settlement.Votes {
			if err := tx.Model(&voteModel{}).
				Where("id = ?", vote.VoteID).
				Updates(map[string]any{
					"resolved":   true,
					"won":        vote.Won,
					"net_change": vote.NetChange,
				}).
				Error; err != nil {
				return r.logError("wagering_repo_settle_vote_failed", err,
					"game_id", settlement.GameID,
					"vote_id", vote.VoteID,
				)
			}
		}

		// Balance updates ride the same transaction; the per-row UPDATE lock
		// serializes against any other settlement touching the same user.
		for _, delta := range settlement.Deltas {
			update := tx.Table("users").
				Where("id = ?", delta.UserID).
				Updates(map[string]any{
					"balance":    gorm.Expr("balance + ?", delta.Delta),
					"updated_at": settlement.ResolvedAt,
				})
			if update.Error != nil {
				return r.logError("wagering_repo_settle_balance_failed", update.Error,
					"game_id", settlement.GameID,
					"user_id", delta.UserID,
				)
			}
			if update.RowsAffected == 0 {
				return domainerrors.ErrConflict
			}
		}

		if err := tx.Model(&gameModel{}).
			Where("id = ?", settlement.GameID).
			Updates(map[string]any{
				"resolved":    true,
				"resolved_at": settlement.ResolvedAt,
				"updated_at":  settlement.ResolvedAt,
			}).
			Error; err != nil {
			return r.logError("wagering_repo_settle_game_failed", err, "game_id", settlement.GameID)
		}

		return appendOutboxTx(tx, event)
	})
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	return appendOutboxTx(r.db.WithContext(ctx), envelope)
}

func appendOutboxTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		ID:           envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return err
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("wagering_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.ID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	update := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if update.Error != nil {
		return r.logError("wagering_repo_mark_outbox_failed", update.Error, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "wagering/game-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("wagering repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type gameModel struct {
	ID         string     `gorm:"column:id;primaryKey"`
	OwnerID    string     `gorm:"column:owner_id"`
	Topic      string     `gorm:"column:topic"`
	GameMode   string     `gorm:"column:game_mode"`
	StakeMode  string     `gorm:"column:stake_mode"`
	StakeFixed int64      `gorm:"column:stake_fixed"`
	StakeMin   int64      `gorm:"column:stake_min"`
	StakeMax   int64      `gorm:"column:stake_max"`
	StartsAt   time.Time  `gorm:"column:starts_at"`
	Deadline   time.Time  `gorm:"column:deadline"`
	Resolved   bool       `gorm:"column:resolved"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	TotalMoney int64      `gorm:"column:total_money"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (gameModel) TableName() string {
	return "games"
}

func gameModelFromEntity(game entities.Game) gameModel {
	return gameModel{
		ID:         game.GameID,
		OwnerID:    game.OwnerID,
		Topic:      game.Topic,
		GameMode:   string(game.Mode),
		StakeMode:  string(game.Stakes.Mode),
		StakeFixed: game.Stakes.FixedAmount,
		StakeMin:   game.Stakes.MinAmount,
		StakeMax:   game.Stakes.MaxAmount,
		StartsAt:   game.StartsAt,
		Deadline:   game.Deadline,
		Resolved:   game.Resolved,
		ResolvedAt: game.ResolvedAt,
		TotalMoney: game.TotalMoney,
		CreatedAt:  game.CreatedAt,
		UpdatedAt:  game.UpdatedAt,
	}
}

func (m gameModel) toEntity() entities.Game {
	return entities.Game{
		GameID:  m.ID,
		OwnerID: m.OwnerID,
		Topic:   m.Topic,
		Mode:    entities.GameMode(m.GameMode),
		Stakes: entities.StakePolicy{
			Mode:        entities.StakeMode(m.StakeMode),
			FixedAmount: m.StakeFixed,
			MinAmount:   m.StakeMin,
			MaxAmount:   m.StakeMax,
		},
		StartsAt:   m.StartsAt,
		Deadline:   m.Deadline,
		Resolved:   m.Resolved,
		ResolvedAt: m.ResolvedAt,
		TotalMoney: m.TotalMoney,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type optionModel struct {
	ID         string `gorm:"column:id;primaryKey"`
	GameID     string `gorm:"column:game_id"`
	Body       string `gorm:"column:body"`
	Index      int    `gorm:"column:option_index"`
	TotalVotes int    `gorm:"column:total_votes"`
	TotalMoney int64  `gorm:"column:total_money"`
	Winner     bool   `gorm:"column:winner"`
}

func (optionModel) TableName() string {
	return "options"
}

func optionModelFromEntity(option entities.Option) optionModel {
	return optionModel{
		ID:         option.OptionID,
		GameID:     option.GameID,
		Body:       option.Body,
		Index:      option.Index,
		TotalVotes: option.TotalVotes,
		TotalMoney: option.TotalMoney,
		Winner:     option.Winner,
	}
}

func (m optionModel) toEntity() entities.Option {
	return entities.Option{
		OptionID:   m.ID,
		GameID:     m.GameID,
		Body:       m.Body,
		Index:      m.Index,
		TotalVotes: m.TotalVotes,
		TotalMoney: m.TotalMoney,
		Winner:     m.Winner,
	}
}

type voteModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	GameID    string    `gorm:"column:game_id;uniqueIndex:idx_votes_game_user"`
	UserID    string    `gorm:"column:user_id;uniqueIndex:idx_votes_game_user"`
	OptionID  string    `gorm:"column:option_id"`
	Money     int64     `gorm:"column:money"`
	CastAt    time.Time `gorm:"column:cast_at"`
	Resolved  bool      `gorm:"column:resolved"`
	Won       bool      `gorm:"column:won"`
	NetChange int64     `gorm:"column:net_change"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	return voteModel{
		ID:        vote.VoteID,
		GameID:    vote.GameID,
		UserID:    vote.UserID,
		OptionID:  vote.OptionID,
		Money:     vote.Money,
		CastAt:    vote.CastAt,
		Resolved:  vote.Resolved,
		Won:       vote.Won,
		NetChange: vote.NetChange,
	}
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:    m.ID,
		GameID:    m.GameID,
		UserID:    m.UserID,
		OptionID:  m.OptionID,
		Money:     m.Money,
		CastAt:    m.CastAt,
		Resolved:  m.Resolved,
		Won:       m.Won,
		NetChange: m.NetChange,
	}
}

type outboxModel struct {
	ID           string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "wagering_outbox"
}

var (
	_ ports.GameRepository       = (*Repository)(nil)
	_ ports.VoteRepository       = (*Repository)(nil)
	_ ports.SettlementRepository = (*Repository)(nil)
	_ ports.OutboxWriter         = (*Repository)(nil)
	_ ports.OutboxRepository     = (*Repository)(nil)
)
