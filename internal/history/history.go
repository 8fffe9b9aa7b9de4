// Package history stores every match the scanner reported in the local database.
package history

import (
	"context"
	"database/sql"
	"marketwatch/internal/components/assert"
	"time"
)

type Match struct {
	Rule      string
	OrderID   int64
	SellPrice int64
	// Drift from the reference price, nil when the rule has no reference.
	Drift     *float64
	Message   string
	MatchedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	assert.NotNil(db)
	return Store{db: db}
}

func (s Store) Record(ctx context.Context, match Match) error {
	var drift sql.NullFloat64
	if match.Drift != nil {
		drift = sql.NullFloat64{Float64: *match.Drift, Valid: true}
	}
	_, err := s.db.ExecContext(
		ctx,
		`insert into match_history(rule, order_id, sell_price, drift, message, matched_at)
		values (?, ?, ?, ?, ?, ?)`,
		match.Rule,
		match.OrderID,
		match.SellPrice,
		drift,
		match.Message,
		match.MatchedAt.Unix(),
	)
	return err
}

// Recent returns at most limit matches, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select rule, order_id, sell_price, drift, message, matched_at
		from match_history
		order by matched_at desc, id desc
		limit ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			match     Match
			drift     sql.NullFloat64
			matchedAt int64
		)
		err = rows.Scan(
			&match.Rule,
			&match.OrderID,
			&match.SellPrice,
			&drift,
			&match.Message,
			&matchedAt,
		)
		if err != nil {
			return nil, err
		}
		if drift.Valid {
			match.Drift = &drift.Float64
		}
		match.MatchedAt = time.Unix(matchedAt, 0)
		matches = append(matches, match)
	}
	return matches, rows.Err()
}
