package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("User not found")
	ErrNoFields = errors.New("No fields to update")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var onboardingColumns = []string{
	"wallet_address",
	"connect_wallet_completed",
	"setup_rpc_completed",
	"mint_sbt_completed",
	"x_completed",
	"telegram_completed",
	"discord_completed",
	"email_completed",
}

// Onboarding is one row of user_onboarding
type Onboarding struct {
	WalletAddress          string `json:"wallet_address"`
	ConnectWalletCompleted bool   `json:"connect_wallet_completed"`
	SetupRPCCompleted      bool   `json:"setup_rpc_completed"`
	MintSBTCompleted       bool   `json:"mint_sbt_completed"`
	XCompleted             bool   `json:"x_completed"`
	TelegramCompleted      bool   `json:"telegram_completed"`
	DiscordCompleted       bool   `json:"discord_completed"`
	EmailCompleted         bool   `json:"email_completed"`
}

func (o *Onboarding) scanTargets() []interface{} {
	return []interface{}{
		&o.WalletAddress,
		&o.ConnectWalletCompleted,
		&o.SetupRPCCompleted,
		&o.MintSBTCompleted,
		&o.XCompleted,
		&o.TelegramCompleted,
		&o.DiscordCompleted,
		&o.EmailCompleted,
	}
}

// OnboardingUpdate carries the flags present in a request body. Nil means
// the field was not sent.
type OnboardingUpdate struct {
	ConnectWalletCompleted *bool `json:"connect_wallet_completed"`
	SetupRPCCompleted      *bool `json:"setup_rpc_completed"`
	MintSBTCompleted       *bool `json:"mint_sbt_completed"`
	XCompleted             *bool `json:"x_completed"`
	TelegramCompleted      *bool `json:"telegram_completed"`
	DiscordCompleted       *bool `json:"discord_completed"`
	EmailCompleted         *bool `json:"email_completed"`
}

type setClause struct {
	column string
	value  *bool
}

func (u OnboardingUpdate) clauses() []setClause {
	return []setClause{
		{"connect_wallet_completed", u.ConnectWalletCompleted},
		{"setup_rpc_completed", u.SetupRPCCompleted},
		{"mint_sbt_completed", u.MintSBTCompleted},
		{"x_completed", u.XCompleted},
		{"telegram_completed", u.TelegramCompleted},
		{"discord_completed", u.DiscordCompleted},
		{"email_completed", u.EmailCompleted},
	}
}

func orFalse(b *bool) bool {
	return b != nil && *b
}

// Store wraps the dApp Postgres database
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to Postgres with a normalized connection string
func Open(databaseURL string, logger *zap.Logger) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}
	db, err := sql.Open("postgres", NormalizeDSN(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing handle
func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var sslParam = regexp.MustCompile(`(?i)(^|\s)(sslmode|ssl)=\S*`)

// NormalizeDSN drops any ssl settings from the connection string and
// requires TLS without certificate verification.
func NormalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err == nil {
			q := u.Query()
			for key := range q {
				if strings.EqualFold(key, "sslmode") || strings.EqualFold(key, "ssl") {
					q.Del(key)
				}
			}
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	dsn = strings.TrimSpace(sslParam.ReplaceAllString(dsn, ""))
	if dsn == "" {
		return "sslmode=require"
	}
	return dsn + " sslmode=require"
}

// ListUsers returns the first ten onboarding rows by wallet address
func (s *Store) ListUsers(ctx context.Context) ([]Onboarding, error) {
	query, args, err := psql.Select(onboardingColumns...).
		From("user_onboarding").
		OrderBy("wallet_address").
		Limit(10).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []Onboarding{}
	for rows.Next() {
		var o Onboarding
		if err := rows.Scan(o.scanTargets()...); err != nil {
			return nil, err
		}
		users = append(users, o)
	}
	return users, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getOnboarding(ctx context.Context, q queryRower, wallet string) (*Onboarding, error) {
	query, args, err := psql.Select(onboardingColumns...).
		From("user_onboarding").
		Where(sq.Eq{"wallet_address": wallet}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var o Onboarding
	err = q.QueryRowContext(ctx, query, args...).Scan(o.scanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOnboarding returns ErrNotFound when the wallet has no row
func (s *Store) GetOnboarding(ctx context.Context, wallet string) (*Onboarding, error) {
	return getOnboarding(ctx, s.db, strings.ToLower(wallet))
}

func insertOnboarding(ctx context.Context, tx *sql.Tx, wallet string, u OnboardingUpdate) (*Onboarding, error) {
	values := []interface{}{wallet}
	for _, c := range u.clauses() {
		values = append(values, orFalse(c.value))
	}
	query, args, err := psql.Insert("user_onboarding").
		Columns(onboardingColumns...).
		Values(values...).
		Suffix("RETURNING " + strings.Join(onboardingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var o Onboarding
	if err := tx.QueryRowContext(ctx, query, args...).Scan(o.scanTargets()...); err != nil {
		return nil, err
	}
	return &o, nil
}

func updateOnboarding(ctx context.Context, tx *sql.Tx, wallet string, clauses []setClause) (*Onboarding, error) {
	b := psql.Update("user_onboarding")
	for _, c := range clauses {
		b = b.Set(c.column, orFalse(c.value))
	}
	query, args, err := b.
		Where(sq.Eq{"wallet_address": wallet}).
		Suffix("RETURNING " + strings.Join(onboardingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var o Onboarding
	if err := tx.QueryRowContext(ctx, query, args...).Scan(o.scanTargets()...); err != nil {
		return nil, err
	}
	return &o, nil
}

// SaveOnboarding creates the row when absent (created is true) and otherwise
// updates it. With replace set every flag is written, missing ones as
// false; without it only the sent flags change and an empty update is
// ErrNoFields.
func (s *Store) SaveOnboarding(ctx context.Context, wallet string, u OnboardingUpdate, replace bool) (o *Onboarding, created bool, err error) {
	wallet = strings.ToLower(wallet)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	_, err = getOnboarding(ctx, tx, wallet)
	switch {
	case errors.Is(err, ErrNotFound):
		o, err = insertOnboarding(ctx, tx, wallet, u)
		if err == nil {
			s.logger.Info("created user onboarding", zap.String("wallet", wallet))
		}
		return o, err == nil, err
	case err != nil:
		return nil, false, err
	}

	clauses := u.clauses()
	if !replace {
		sent := clauses[:0]
		for _, c := range clauses {
			if c.value != nil {
				sent = append(sent, c)
			}
		}
		if len(sent) == 0 {
			return nil, false, ErrNoFields
		}
		clauses = sent
	}

	o, err = updateOnboarding(ctx, tx, wallet, clauses)
	return o, false, err
}

// CommunityActivity returns the latest activity flag per entity
func (s *Store) CommunityActivity(ctx context.Context, wallet string) (map[string]bool, error) {
	latest := sq.Select("entity", "activity",
		"ROW_NUMBER() OVER (PARTITION BY entity ORDER BY created_at DESC) AS rn").
		From("user_activity").
		Where(sq.Eq{"user_address": strings.ToLower(wallet)})

	query, args, err := psql.Select("entity", "activity").
		FromSelect(latest, "sub").
		Where("rn = 1").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load community activity: %w", err)
	}
	defer rows.Close()

	activities := map[string]bool{}
	for rows.Next() {
		var entity string
		var activity sql.NullBool
		if err := rows.Scan(&entity, &activity); err != nil {
			return nil, err
		}
		activities[entity] = activity.Valid && activity.Bool
	}
	return activities, rows.Err()
}

// RecordActivity appends one activity row
func (s *Store) RecordActivity(ctx context.Context, wallet, entity string, activity bool) error {
	query, args, err := psql.Insert("user_activity").
		Columns("user_address", "entity", "activity").
		Values(strings.ToLower(wallet), entity, activity).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}
