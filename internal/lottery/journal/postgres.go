package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/radieske/lottery-dapp-poc/pkg/contracts/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS lottery_transactions (
	id           uuid PRIMARY KEY,
	operation    text        NOT NULL,
	params       jsonb       NOT NULL DEFAULT '{}'::jsonb,
	from_address text        NOT NULL,
	status       text        NOT NULL,
	tx_hash      text        NOT NULL DEFAULT '',
	reason       text        NOT NULL DEFAULT '',
	submitted_at timestamptz NOT NULL,
	updated_at   timestamptz NOT NULL
)`

// Postgres guarda o histórico de transações enviadas por este processo
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema cria a tabela se ainda não existir
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create lottery_transactions: %w", err)
	}
	return nil
}

// Record insere a linha no envio e atualiza status/motivo nas transições seguintes.
// Idempotente por id: repetir o mesmo evento só reescreve os mesmos valores.
func (p *Postgres) Record(ctx context.Context, ev events.TxEvent) error {
	params, err := json.Marshal(ev.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if ev.Params == nil {
		params = []byte("{}")
	}
	ts := time.UnixMilli(ev.TsUnixMs).UTC()

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO lottery_transactions(id, operation, params, from_address, status, tx_hash, reason, submitted_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			tx_hash    = COALESCE(NULLIF(EXCLUDED.tx_hash, ''), lottery_transactions.tx_hash),
			reason     = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at`,
		ev.ID, ev.Operation, params, ev.From, ev.Status, ev.Hash, ev.Reason, ts)
	if err != nil {
		return fmt.Errorf("upsert lottery_transactions %s: %w", ev.ID, err)
	}
	return nil
}

// Recent lista as últimas transações, mais novas primeiro
func (p *Postgres) Recent(ctx context.Context, limit int) ([]events.TxEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, operation, params, from_address, status, tx_hash, reason, updated_at
		FROM lottery_transactions
		ORDER BY submitted_at DESC, updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.TxEvent
	for rows.Next() {
		var (
			ev      events.TxEvent
			params  []byte
			updated time.Time
		)
		if err := rows.Scan(&ev.ID, &ev.Operation, &params, &ev.From, &ev.Status, &ev.Hash, &ev.Reason, &updated); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			_ = json.Unmarshal(params, &ev.Params)
		}
		ev.TsUnixMs = updated.UnixMilli()
		out = append(out, ev)
	}
	return out, rows.Err()
}
