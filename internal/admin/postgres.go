package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gatehouse.org/internal/audit"
	"gatehouse.org/internal/identity"
)

var _ Store = (*PG)(nil)

// PG implements Store on PostgreSQL. Each mutation and its audit entry
// share one transaction.
type PG struct {
	db  *sql.DB
	ids *identity.PG
}

func NewPG(db *sql.DB) *PG {
	return &PG{db: db, ids: identity.NewPG(db)}
}

func (s *PG) FindByID(ctx context.Context, id string) (*identity.Identity, error) {
	return s.ids.FindByID(ctx, id)
}

func (s *PG) FindByUsername(ctx context.Context, username string) (*identity.Identity, error) {
	return s.ids.FindByUsername(ctx, username)
}

func (s *PG) List(ctx context.Context) ([]*identity.Identity, error) {
	return s.ids.List(ctx)
}

func (s *PG) CreateUser(ctx context.Context, u *identity.Identity, e *audit.Entry) error {
	return s.inTx(ctx, e, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`insert into identities(id, username, password_hash, role, active, created_at, updated_at)
			 values($1,$2,$3,$4,$5,now(),now())
			 on conflict (username) do nothing`,
			u.ID, u.Username, u.PasswordHash, u.Role, u.Active,
		)
		if err != nil {
			return err
		}
		return oneRow(res, identity.ErrAlreadyExists)
	})
}

func (s *PG) UpdatePassword(ctx context.Context, id, passwordHash string, e *audit.Entry) error {
	return s.inTx(ctx, e, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`update identities set password_hash=$2, updated_at=now() where id=$1`,
			id, passwordHash,
		)
		if err != nil {
			return err
		}
		return oneRow(res, identity.ErrNotFound)
	})
}

func (s *PG) ChangeRole(ctx context.Context, id string, role identity.Role, e *audit.Entry) error {
	return s.inTx(ctx, e, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`update identities set role=$2, updated_at=now() where id=$1`,
			id, role,
		)
		if err != nil {
			return err
		}
		return oneRow(res, identity.ErrNotFound)
	})
}

func (s *PG) SetStatus(ctx context.Context, id string, active bool, e *audit.Entry) error {
	return s.inTx(ctx, e, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`update identities set active=$2, updated_at=now() where id=$1`,
			id, active,
		)
		if err != nil {
			return err
		}
		return oneRow(res, identity.ErrNotFound)
	})
}

func (s *PG) DeleteUser(ctx context.Context, id string, e *audit.Entry) error {
	return s.inTx(ctx, e, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `delete from identities where id=$1`, id)
		if err != nil {
			return err
		}
		return oneRow(res, identity.ErrNotFound)
	})
}

func (s *PG) inTx(ctx context.Context, e *audit.Entry, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if e != nil {
		if err := audit.InsertTx(ctx, tx, e); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
	}
	return tx.Commit()
}

func oneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	if n != 1 {
		return errors.New("admin: unexpected row count")
	}
	return nil
}
