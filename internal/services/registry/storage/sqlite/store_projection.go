package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage"
)

var zeroHashHex = common.Hash{}.Hex()

// GetDomainOwner returns the owner of a claimed domain.
func (s *Store) GetDomainOwner(ctx context.Context, domainHash domain.Key) (domain.Identity, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Identity{}, err
	}
	var owner string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT owner FROM domain_owners WHERE domain_hash = ?`,
		domainHash.Hex(),
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, storage.ErrNotFound
		}
		return domain.Identity{}, fmt.Errorf("get domain owner: %w", err)
	}
	return domain.ParseIdentity(owner)
}

// GetSubdomain returns an attached subdomain row.
func (s *Store) GetSubdomain(ctx context.Context, domainHash, subdomainHash domain.Key) (storage.Subdomain, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Subdomain{}, err
	}
	sub := storage.Subdomain{DomainHash: domainHash, SubdomainHash: subdomainHash}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT name FROM subdomains WHERE domain_hash = ? AND subdomain_hash = ?`,
		domainHash.Hex(),
		subdomainHash.Hex(),
	).Scan(&sub.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Subdomain{}, storage.ErrNotFound
		}
		return storage.Subdomain{}, fmt.Errorf("get subdomain: %w", err)
	}
	return sub, nil
}

// GetPointer returns the pointer record of a subdomain hash. Absent records
// read as the zero pointer.
func (s *Store) GetPointer(ctx context.Context, subdomainHash domain.Key) (domain.Pointer, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Pointer{}, err
	}
	var subgraphID, metadata string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT subgraph_id, metadata_pointer FROM pointers WHERE subdomain_hash = ?`,
		subdomainHash.Hex(),
	).Scan(&subgraphID, &metadata)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Pointer{}, nil
		}
		return domain.Pointer{}, fmt.Errorf("get pointer: %w", err)
	}
	return domain.Pointer{
		SubgraphID:      common.HexToHash(subgraphID),
		MetadataPointer: common.HexToHash(metadata),
	}, nil
}

// applyProjection mirrors domain.Fold into the projection tables.
func applyProjection(ctx context.Context, tx *sql.Tx, env journal.Envelope) error {
	evt, err := env.Event()
	if err != nil {
		return err
	}
	domainHash := evt.DomainHash.Hex()
	subdomainHash := evt.SubdomainHash.Hex()

	var execErr error
	switch payload := evt.Payload.(type) {
	case domain.DomainClaimedPayload:
		_, execErr = tx.ExecContext(ctx,
			`INSERT INTO domain_owners (domain_hash, owner, name, claimed_seq) VALUES (?, ?, ?, ?)`,
			domainHash, payload.Owner.Hex(), payload.DomainName, int64(env.Seq),
		)

	case domain.SubgraphAttachedPayload:
		if _, execErr = tx.ExecContext(ctx,
			`INSERT INTO subdomains (domain_hash, subdomain_hash, name) VALUES (?, ?, ?)`,
			domainHash, subdomainHash, payload.SubdomainName,
		); execErr != nil {
			break
		}
		execErr = putPointer(ctx, tx, subdomainHash, payload.SubgraphID.Hex(), payload.MetadataPointer.Hex())

	case domain.MetadataChangedPayload:
		if _, execErr = tx.ExecContext(ctx,
			`INSERT INTO pointers (subdomain_hash, subgraph_id, metadata_pointer) VALUES (?, ?, ?)
			 ON CONFLICT(subdomain_hash) DO UPDATE SET metadata_pointer = excluded.metadata_pointer`,
			subdomainHash, zeroHashHex, payload.MetadataPointer.Hex(),
		); execErr != nil {
			break
		}
		execErr = pruneZeroPointer(ctx, tx, subdomainHash)

	case domain.SubgraphIDChangedPayload:
		if _, execErr = tx.ExecContext(ctx,
			`INSERT INTO pointers (subdomain_hash, subgraph_id, metadata_pointer) VALUES (?, ?, ?)
			 ON CONFLICT(subdomain_hash) DO UPDATE SET subgraph_id = excluded.subgraph_id`,
			subdomainHash, payload.SubgraphID.Hex(), zeroHashHex,
		); execErr != nil {
			break
		}
		execErr = pruneZeroPointer(ctx, tx, subdomainHash)

	case domain.SubgraphDeletedPayload:
		if _, execErr = tx.ExecContext(ctx,
			`DELETE FROM subdomains WHERE domain_hash = ? AND subdomain_hash = ?`,
			domainHash, subdomainHash,
		); execErr != nil {
			break
		}
		_, execErr = tx.ExecContext(ctx, `DELETE FROM pointers WHERE subdomain_hash = ?`, subdomainHash)

	case domain.AccountMetadataChangedPayload:
		return nil

	default:
		return fmt.Errorf("project %s: unsupported payload %T", evt.Type, payload)
	}
	if execErr != nil {
		return fmt.Errorf("project %s event %d: %w", evt.Type, env.Seq, execErr)
	}
	return nil
}

func putPointer(ctx context.Context, tx *sql.Tx, subdomainHash, subgraphID, metadata string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pointers (subdomain_hash, subgraph_id, metadata_pointer) VALUES (?, ?, ?)
		 ON CONFLICT(subdomain_hash) DO UPDATE SET
		   subgraph_id = excluded.subgraph_id,
		   metadata_pointer = excluded.metadata_pointer`,
		subdomainHash, subgraphID, metadata,
	); err != nil {
		return err
	}
	return pruneZeroPointer(ctx, tx, subdomainHash)
}

func pruneZeroPointer(ctx context.Context, tx *sql.Tx, subdomainHash string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM pointers WHERE subdomain_hash = ? AND subgraph_id = ? AND metadata_pointer = ?`,
		subdomainHash, zeroHashHex, zeroHashHex,
	)
	return err
}
