package audit

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"
)

var _ Recorder = (*PG)(nil)

// PG implements Recorder on PostgreSQL. The table is append-only; there are
// no update or delete paths.
type PG struct {
	db *sql.DB
}

func NewPG(db *sql.DB) *PG {
	return &PG{db: db}
}

// Execer is satisfied by *sql.DB and *sql.Tx so appends can join the
// transaction of the mutation they describe.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertTx appends an entry using the caller's transaction. A mutating
// operation and its audit record commit or roll back together.
func InsertTx(ctx context.Context, ex Execer, e *Entry) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx,
		`insert into audit_log(id, actor_id, action, target_id, outcome, reason, origin_ip, user_agent, occurred_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		e.ID, nullable(e.ActorID), e.Action, nullable(e.TargetID), e.Outcome,
		nullable(e.Reason), nullable(e.Origin.IP), nullable(e.Origin.UserAgent), e.OccurredAt,
	)
	return err
}

func (s *PG) Append(ctx context.Context, e *Entry) error {
	return InsertTx(ctx, s.db, e)
}

func (s *PG) Query(ctx context.Context, f Filters) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.ActorID != "" {
		add("actor_id=", f.ActorID)
	}
	if f.Action != "" {
		add("action=", f.Action)
	}
	if f.TargetID != "" {
		add("target_id=", f.TargetID)
	}
	if !f.From.IsZero() {
		add("occurred_at>=", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at<", f.To)
	}

	q := `select id, actor_id, action, target_id, outcome, reason, origin_ip, user_agent, occurred_at from audit_log`
	if len(where) > 0 {
		q += " where " + strings.Join(where, " and ")
	}
	q += " order by occurred_at desc, id desc"
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	q += " limit $" + strconv.Itoa(len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += " offset $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Entry
	for rows.Next() {
		var (
			e                             Entry
			actor, target, reason, ip, ua sql.NullString
		)
		if err := rows.Scan(&e.ID, &actor, &e.Action, &target, &e.Outcome, &reason, &ip, &ua, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.ActorID = actor.String
		e.TargetID = target.String
		e.Reason = reason.String
		e.Origin = Origin{IP: ip.String, UserAgent: ua.String}
		res = append(res, &e)
	}
	return res, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
