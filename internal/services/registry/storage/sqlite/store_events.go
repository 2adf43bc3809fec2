package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage"
	"github.com/louisbranch/gns/internal/services/registry/storage/filter"
)

const (
	defaultEventPageSize = 100
	maxEventPageSize     = 500
)

const eventColumns = `seq, event_type, timestamp, actor_id, request_id, domain_hash, subdomain_hash,
	payload_json, hash, prev_hash, chain_hash, signature, signature_key_id`

type rowScanner interface {
	Scan(dest ...any) error
}

// AppendEvents seals envs after the journal head and writes them together
// with their projection changes. Nothing is written if any step fails.
func (s *Store) AppendEvents(ctx context.Context, envs []journal.Envelope) ([]journal.Envelope, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	prev, err := lastEvent(ctx, tx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	sealed := make([]journal.Envelope, 0, len(envs))
	for _, env := range envs {
		env, err = journal.Seal(env, prev, s.keyring)
		if err != nil {
			return nil, err
		}
		if err := insertEvent(ctx, tx, env); err != nil {
			return nil, err
		}
		if err := applyProjection(ctx, tx, env); err != nil {
			return nil, err
		}
		sealed = append(sealed, env)
		prev = env
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}
	return sealed, nil
}

// LastEvent returns the journal head.
func (s *Store) LastEvent(ctx context.Context) (journal.Envelope, error) {
	if err := s.ready(ctx); err != nil {
		return journal.Envelope{}, err
	}
	return lastEvent(ctx, s.sqlDB)
}

// ListEvents returns envelopes after req.AfterSeq matching req.Filter.
func (s *Store) ListEvents(ctx context.Context, req storage.ListEventsRequest) (storage.EventPage, error) {
	if err := s.ready(ctx); err != nil {
		return storage.EventPage{}, err
	}
	cond, err := filter.Parse(req.Filter)
	if err != nil {
		return storage.EventPage{}, err
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultEventPageSize
	}
	if pageSize > maxEventPageSize {
		pageSize = maxEventPageSize
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE seq > ?`
	args := []any{int64(req.AfterSeq)}
	if !cond.Empty() {
		query += ` AND ` + cond.Clause
		args = append(args, cond.Params...)
	}
	query += ` ORDER BY seq LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	page := storage.EventPage{}
	for rows.Next() {
		env, err := scanEvent(rows)
		if err != nil {
			return storage.EventPage{}, err
		}
		page.Events = append(page.Events, env)
	}
	if err := rows.Err(); err != nil {
		return storage.EventPage{}, fmt.Errorf("iterate events: %w", err)
	}
	if len(page.Events) > pageSize {
		page.Events = page.Events[:pageSize]
		page.NextAfterSeq = page.Events[pageSize-1].Seq
	}
	return page, nil
}

// ReplayEvents streams every envelope in seq order to fn.
func (s *Store) ReplayEvents(ctx context.Context, fn func(journal.Envelope) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("replay events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		env, err := scanEvent(rows)
		if err != nil {
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lastEvent(ctx context.Context, q querier) (journal.Envelope, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY seq DESC LIMIT 1`)
	env, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Envelope{}, storage.ErrNotFound
		}
		return journal.Envelope{}, err
	}
	return env, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, env journal.Envelope) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(env.Seq),
		string(env.Type),
		toMillis(env.Timestamp),
		env.ActorID,
		env.RequestID,
		env.DomainHash,
		env.SubdomainHash,
		env.PayloadJSON,
		env.Hash,
		env.PrevHash,
		env.ChainHash,
		env.Signature,
		env.SignatureKeyID,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", env.Seq, err)
	}
	return nil
}

func scanEvent(row rowScanner) (journal.Envelope, error) {
	var (
		env       journal.Envelope
		seq       int64
		eventType string
		timestamp int64
	)
	err := row.Scan(
		&seq,
		&eventType,
		&timestamp,
		&env.ActorID,
		&env.RequestID,
		&env.DomainHash,
		&env.SubdomainHash,
		&env.PayloadJSON,
		&env.Hash,
		&env.PrevHash,
		&env.ChainHash,
		&env.Signature,
		&env.SignatureKeyID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Envelope{}, err
		}
		return journal.Envelope{}, fmt.Errorf("scan event: %w", err)
	}
	env.Seq = uint64(seq)
	env.Type = domain.EventType(eventType)
	env.Timestamp = fromMillis(timestamp)
	return env, nil
}
