// Package sqlite persists the session buffer in an embedded SQLite file so
// conversational context survives process restart.
package sqlite

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/NotSquiz/atlas-bridge/domain/entities"
	"github.com/NotSquiz/atlas-bridge/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     REAL NOT NULL,
	user_text     TEXT NOT NULL,
	response_text TEXT NOT NULL,
	category      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_timestamp ON exchanges (timestamp);
`

// ExchangeRepository implements repositories.ExchangeRepository on a local
// SQLite database. Writers are serialized so the cap/TTL prune is atomic
// with the insert; readers never observe a partially pruned buffer because
// every mutation happens inside one transaction.
type ExchangeRepository struct {
	db     *sql.DB
	cap    int
	ttl    time.Duration
	logger *zap.Logger

	// serializes Append/Clear; SQLite allows one writer at a time anyway,
	// this keeps the prune deterministic under concurrent appends.
	writeMu sync.Mutex

	// now is swappable for TTL tests.
	now func() time.Time
}

// NewExchangeRepository opens (creating if needed) the database at path.
func NewExchangeRepository(path string, cap int, ttl time.Duration, logger *zap.Logger) (*ExchangeRepository, error) {
	if cap <= 0 {
		cap = entities.MaxExchanges
	}
	if ttl <= 0 {
		ttl = entities.ExchangeTTL
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &entities.PersistenceError{Op: "open database", Err: err}
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, &entities.PersistenceError{Op: "configure database", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &entities.PersistenceError{Op: "create schema", Err: err}
	}

	return &ExchangeRepository{
		db:     db,
		cap:    cap,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

var _ repositories.ExchangeRepository = (*ExchangeRepository)(nil)

// Append inserts one exchange and prunes in the same transaction: rows past
// the TTL go regardless of count, then rows beyond the cap go oldest first.
// The mutation is durable before return.
func (r *ExchangeRepository) Append(ctx context.Context, userText, responseText, category string) (entities.Exchange, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	now := r.now()
	ex := entities.Exchange{
		Timestamp:    float64(now.UnixNano()) / 1e9,
		UserText:     userText,
		ResponseText: responseText,
		Category:     category,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "begin append", Err: err}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO exchanges (timestamp, user_text, response_text, category) VALUES (?, ?, ?, ?)`,
		ex.Timestamp, ex.UserText, ex.ResponseText, ex.Category)
	if err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "insert exchange", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "insert exchange", Err: err}
	}
	ex.ID = id

	cutoff := float64(now.Add(-r.ttl).UnixNano()) / 1e9
	if _, err := tx.ExecContext(ctx, `DELETE FROM exchanges WHERE timestamp < ?`, cutoff); err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "prune expired", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM exchanges WHERE id NOT IN (SELECT id FROM exchanges ORDER BY id DESC LIMIT ?)`,
		r.cap); err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "prune over cap", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return entities.Exchange{}, &entities.PersistenceError{Op: "commit append", Err: err}
	}
	return ex, nil
}

// Recent returns up to maxN non-expired exchanges in chronological order.
// Expired rows still physically stored are filtered at read time.
func (r *ExchangeRepository) Recent(ctx context.Context, maxN int) ([]entities.Exchange, error) {
	if maxN <= 0 {
		return nil, nil
	}
	cutoff := float64(r.now().Add(-r.ttl).UnixNano()) / 1e9
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, timestamp, user_text, response_text, category
		 FROM exchanges WHERE timestamp >= ? ORDER BY id DESC LIMIT ?`,
		cutoff, maxN)
	if err != nil {
		return nil, &entities.PersistenceError{Op: "query recent", Err: err}
	}
	defer rows.Close()

	var newestFirst []entities.Exchange
	for rows.Next() {
		var ex entities.Exchange
		if err := rows.Scan(&ex.ID, &ex.Timestamp, &ex.UserText, &ex.ResponseText, &ex.Category); err != nil {
			return nil, &entities.PersistenceError{Op: "scan exchange", Err: err}
		}
		newestFirst = append(newestFirst, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, &entities.PersistenceError{Op: "iterate recent", Err: err}
	}

	// Oldest first.
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// LastCategory returns the topic of the most recent non-expired exchange.
func (r *ExchangeRepository) LastCategory(ctx context.Context) (string, bool, error) {
	cutoff := float64(r.now().Add(-r.ttl).UnixNano()) / 1e9
	var category string
	err := r.db.QueryRowContext(ctx,
		`SELECT category FROM exchanges WHERE timestamp >= ? ORDER BY id DESC LIMIT 1`,
		cutoff).Scan(&category)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, &entities.PersistenceError{Op: "query last category", Err: err}
	}
	return category, true, nil
}

// Clear removes all rows. Test/reset use only.
func (r *ExchangeRepository) Clear(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exchanges`); err != nil {
		return &entities.PersistenceError{Op: "clear exchanges", Err: err}
	}
	return nil
}

// Close closes the database handle.
func (r *ExchangeRepository) Close() error {
	return r.db.Close()
}
