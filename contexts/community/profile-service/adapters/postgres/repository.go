package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	application "zerosum/contexts/community/profile-service/application"
	"zerosum/contexts/community/profile-service/domain/entities"
	domainerrors "zerosum/contexts/community/profile-service/domain/errors"
	"zerosum/contexts/community/profile-service/ports"
)

const uniqueViolationCode = "23505"

// Repository persists profiles in the shared users table. The wagering
// settlement transaction writes balances into the same rows, so this side
// never touches Balance outside ApplyBalanceDelta.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: application.ResolveLogger(logger)}
}

type userModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:255"`
	Provider       string `gorm:"size:32;uniqueIndex:idx_users_provider,priority:1"`
	ProviderUserID string `gorm:"size:128;uniqueIndex:idx_users_provider,priority:2"`
	Balance        int64
	GamesWon       int
	GamesResolved  int `gorm:"index"`
	WinRate        float64
	Experience     int
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userModel) TableName() string { return "users" }

type processedEventModel struct {
	EventID     string `gorm:"primaryKey;size:64"`
	PayloadHash string `gorm:"size:64"`
	ExpiresAt   time.Time
}

func (processedEventModel) TableName() string { return "profile_processed_events" }

// Migrate creates the profile-side tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &processedEventModel{})
}

func (r *Repository) GetProfile(ctx context.Context, userID string) (entities.UserProfile, error) {
	var row userModel
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.UserProfile{}, domainerrors.ErrProfileNotFound
	}
	if err != nil {
		return entities.UserProfile{}, r.logError("profile_repo_get_failed", err, "user_id", userID)
	}
	return toProfile(row), nil
}

func (r *Repository) CreateProfile(ctx context.Context, profile entities.UserProfile) error {
	row := toModel(profile)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("profile_repo_create_failed", err, "user_id", profile.UserID)
	}
	return nil
}

// SaveProfile applies an optimistic version check: the UPDATE matches the
// version the caller read, so a concurrent writer makes RowsAffected zero.
// Balance is deliberately absent from the update set.
func (r *Repository) SaveProfile(ctx context.Context, profile entities.UserProfile) error {
	update := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ? AND version = ?", profile.UserID, profile.Version).
		Updates(map[string]any{
			"name":           profile.Name,
			"games_won":      profile.GamesWon,
			"games_resolved": profile.GamesResolved,
			"win_rate":       profile.WinRate,
			"experience":     profile.Experience,
			"version":        profile.Version + 1,
			"updated_at":     profile.UpdatedAt,
		})
	if update.Error != nil {
		return r.logError("profile_repo_save_failed", update.Error, "user_id", profile.UserID)
	}
	if update.RowsAffected == 0 {
		var exists int64
		if err := r.db.WithContext(ctx).Model(&userModel{}).
			Where("id = ?", profile.UserID).Count(&exists).Error; err != nil {
			return r.logError("profile_repo_save_failed", err, "user_id", profile.UserID)
		}
		if exists == 0 {
			return domainerrors.ErrProfileNotFound
		}
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) GetByProvider(ctx context.Context, provider string, providerUserID string) (entities.UserProfile, bool, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.UserProfile{}, false, nil
	}
	if err != nil {
		return entities.UserProfile{}, false, r.logError("profile_repo_provider_lookup_failed", err, "provider", provider)
	}
	return toProfile(row), true, nil
}

func (r *Repository) ListEligible(ctx context.Context, minResolved int) ([]entities.UserProfile, error) {
	var rows []userModel
	err := r.db.WithContext(ctx).
		Where("games_resolved >= ?", minResolved).
		Order("win_rate DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("profile_repo_list_eligible_failed", err)
	}
	profiles := make([]entities.UserProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, toProfile(row))
	}
	return profiles, nil
}

// ApplyBalanceDelta exists for wiring symmetry with the in-memory ledger. In
// the postgres deployment the settlement transaction updates users.balance
// directly, so this path only serves out-of-band adjustments.
func (r *Repository) ApplyBalanceDelta(ctx context.Context, userID string, delta int64) error {
	update := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta))
	if update.Error != nil {
		return r.logError("profile_repo_balance_failed", update.Error, "user_id", userID)
	}
	if update.RowsAffected == 0 {
		return domainerrors.ErrProfileNotFound
	}
	return nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	insert := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&processedEventModel{EventID: eventID, PayloadHash: payloadHash, ExpiresAt: expiresAt})
	if insert.Error != nil {
		return false, r.logError("profile_repo_dedupe_failed", insert.Error, "event_id", eventID)
	}
	return insert.RowsAffected == 0, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "community/profile-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("profile repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func toProfile(row userModel) entities.UserProfile {
	return entities.UserProfile{
		UserID:         row.ID,
		Name:           row.Name,
		Provider:       row.Provider,
		ProviderUserID: row.ProviderUserID,
		Balance:        row.Balance,
		GamesWon:       row.GamesWon,
		GamesResolved:  row.GamesResolved,
		WinRate:        row.WinRate,
		Experience:     row.Experience,
		Version:        row.Version,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func toModel(profile entities.UserProfile) userModel {
	return userModel{
		ID:             profile.UserID,
		Name:           profile.Name,
		Provider:       profile.Provider,
		ProviderUserID: profile.ProviderUserID,
		Balance:        profile.Balance,
		GamesWon:       profile.GamesWon,
		GamesResolved:  profile.GamesResolved,
		WinRate:        profile.WinRate,
		Experience:     profile.Experience,
		Version:        profile.Version,
		CreatedAt:      profile.CreatedAt,
		UpdatedAt:      profile.UpdatedAt,
	}
}

var (
	_ ports.ProfileRepository = (*Repository)(nil)
	_ ports.EventDedupStore   = (*Repository)(nil)
)
