package queries

import (
	"fmt"
)

func TotalCountQuery(inner string) string {
	return fmt.Sprintf(`
		WITH subquery AS (%s)
			SELECT count(*) FROM subquery`, inner)
}

const (
	InsertEvent = `
		INSERT INTO vault.events (seq, name, block_time, account, payload, topics, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (seq) DO UPDATE SET
			name = excluded.name,
			block_time = excluded.block_time,
			account = excluded.account,
			payload = excluded.payload,
			topics = excluded.topics,
			data = excluded.data`

	// The new amount is prev - replaced + assets: replaced is the whole
	// previous amount when a re-request overwrites, and zero when it accumulates.
	UpsertCooldown = `
		INSERT INTO vault.cooldowns (account, unlock_timestamp, underlying_amount, last_seq)
			VALUES ($1, $2, $3::text::numeric, $5)
		ON CONFLICT (account) DO UPDATE SET
			unlock_timestamp = excluded.unlock_timestamp,
			underlying_amount = vault.cooldowns.underlying_amount - $4::text::numeric + $3::text::numeric,
			last_seq = excluded.last_seq`

	DeleteCooldown = `
		DELETE FROM vault.cooldowns
			WHERE account = $1`

	InsertCooldown = `
		INSERT INTO vault.cooldowns (account, unlock_timestamp, underlying_amount, last_seq)
			VALUES ($1, $2, $3::text::numeric, $4)`

	DeleteEventsAfter = `
		DELETE FROM vault.events
			WHERE seq > $1`

	DeleteCooldowns = `
		DELETE FROM vault.cooldowns`

	LatestSeq = `
		SELECT COALESCE(MAX(seq), 0)
			FROM vault.events`

	Events = `
		SELECT seq, name, block_time, account, payload, topics, data
			FROM vault.events
			WHERE ($1::text IS NULL OR account = $1::text) AND
					($2::text IS NULL OR name = $2::text) AND
					($3::bigint IS NULL OR seq > $3::bigint)
		ORDER BY seq DESC
		LIMIT $4::bigint
		OFFSET $5::bigint`

	Event = `
		SELECT seq, name, block_time, account, payload, topics, data
			FROM vault.events
			WHERE seq = $1::bigint`

	Cooldown = `
		SELECT account, unlock_timestamp, underlying_amount::text, last_seq
			FROM vault.cooldowns
			WHERE account = $1::text`
)
