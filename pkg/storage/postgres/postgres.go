// Package postgres stores responses in PostgreSQL. Each response is kept as a
// JSONB document next to its input items; a key/value table holds
// checkpoints, so the same database can back checkpoint.Store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/checkpoint"
	"github.com/rhuss/respkit/pkg/storage"
	"github.com/rhuss/respkit/pkg/transport"
)

// Store is a PostgreSQL-backed ResponseStore and checkpoint KV.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ transport.ResponseStore = (*Store)(nil)
	_ checkpoint.KV           = (*Store)(nil)
)

// New connects to the database and, if cfg.MigrateOnStart is set, brings
// the schema up to date.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

func (s *Store) SaveResponse(ctx context.Context, resp *api.Response, input api.Items) error {
	doc, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}
	if input == nil {
		input = api.Items{}
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshaling input: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO responses (id, tenant_id, model, status, document, input, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		resp.ID, storage.GetTenant(ctx), resp.Model, string(resp.Status), doc, inputJSON, resp.CreatedAt,
	)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("inserting response: %w", err)
	}
	return nil
}

func (s *Store) UpdateResponse(ctx context.Context, resp *api.Response) error {
	doc, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	query := `UPDATE responses SET document = $1, status = $2, updated_at = now()
		WHERE id = $3 AND deleted_at IS NULL`
	args := []any{doc, string(resp.Status), resp.ID}
	query, args = scopeTenant(ctx, query, args)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) GetResponse(ctx context.Context, id string) (*api.Response, error) {
	return s.getResponse(ctx, id, false)
}

func (s *Store) GetResponseForChain(ctx context.Context, id string) (*api.Response, error) {
	return s.getResponse(ctx, id, true)
}

func (s *Store) getResponse(ctx context.Context, id string, includeDeleted bool) (*api.Response, error) {
	query := "SELECT document FROM responses WHERE id = $1"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query, args := scopeTenant(ctx, query, []any{id})

	var doc []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying response: %w", err)
	}

	var resp api.Response
	if err := json.Unmarshal(doc, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response %s: %w", id, err)
	}
	return &resp, nil
}

// DeleteResponse soft-deletes by setting deleted_at.
func (s *Store) DeleteResponse(ctx context.Context, id string) error {
	query, args := scopeTenant(ctx,
		"UPDATE responses SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL",
		[]any{time.Now(), id})

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListResponses pages with (created_at, seq) row comparison against the
// cursor row, so responses created in the same second keep insertion
// order. An unknown cursor matches nothing.
func (s *Store) ListResponses(ctx context.Context, opts transport.ListOptions) (*api.ResponseList, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "deleted_at IS NULL")
	if t := storage.GetTenant(ctx); t != "" {
		where = append(where, "tenant_id = "+arg(t))
	}
	if opts.Model != "" {
		where = append(where, "model = "+arg(opts.Model))
	}

	order, after, before := "DESC", "<", ">"
	if opts.Order == api.OrderAsc {
		order, after, before = "ASC", ">", "<"
	}
	const cursorRow = "(SELECT created_at, seq FROM responses WHERE id = %s)"
	switch {
	case opts.After != "":
		where = append(where, "(created_at, seq) "+after+" "+fmt.Sprintf(cursorRow, arg(opts.After)))
	case opts.Before != "":
		where = append(where, "(created_at, seq) "+before+" "+fmt.Sprintf(cursorRow, arg(opts.Before)))
	}

	limit := storage.ClampLimit(opts.Limit)
	query := fmt.Sprintf("SELECT document FROM responses WHERE %s ORDER BY created_at %s, seq %s LIMIT %s",
		strings.Join(where, " AND "), order, order, arg(limit+1))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}
	data := make([]*api.Response, 0, len(docs))
	for _, doc := range docs {
		var resp api.Response
		if err := json.Unmarshal(doc, &resp); err != nil {
			return nil, fmt.Errorf("unmarshaling response: %w", err)
		}
		data = append(data, &resp)
	}
	return api.NewResponseList(data, hasMore), nil
}

func (s *Store) GetInputItems(ctx context.Context, responseID string, opts transport.ListOptions) (*api.ItemList, error) {
	query, args := scopeTenant(ctx,
		"SELECT input FROM responses WHERE id = $1 AND deleted_at IS NULL",
		[]any{responseID})

	var raw []byte
	err := s.pool.QueryRow(ctx, query, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying input items: %w", err)
	}

	var items api.Items
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshaling input items: %w", err)
	}
	if opts.Order == api.OrderDesc {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	page, more := storage.Page(items, func(it api.Item) string { return it.Base().ID }, opts.After, opts.Before, opts.Limit)
	return api.NewItemList(page, more), nil
}

// Get implements checkpoint.KV.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.pool.QueryRow(ctx, "SELECT value FROM checkpoints WHERE key = $1", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, checkpoint.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint: %w", err)
	}
	return v, nil
}

// Set implements checkpoint.KV.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkpoints (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scopeTenant appends a tenant condition when ctx carries a tenant.
func scopeTenant(ctx context.Context, query string, args []any) (string, []any) {
	t := storage.GetTenant(ctx)
	if t == "" {
		return query, args
	}
	args = append(args, t)
	return query + fmt.Sprintf(" AND tenant_id = $%d", len(args)), args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
