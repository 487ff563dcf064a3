package queries

const (
	QueryCreateRoom = `
		INSERT INTO rooms (code, capacity, round_limit, state, current_round, theme_group, word_a, word_b, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	QueryGetRoom = `
		SELECT code, capacity, round_limit, state, current_round, theme_group, word_a, word_b, created_at, ended_at
		FROM rooms
		WHERE code = $1;
	`
	QueryExistsActiveRoom = `SELECT 1 FROM rooms WHERE code = $1 AND state <> 'ENDED';`
	QueryUpdateRoom       = `
		UPDATE rooms
		SET capacity = $2, round_limit = $3, state = $4, current_round = $5,
		    theme_group = $6, word_a = $7, word_b = $8, ended_at = $9
		WHERE code = $1;
	`
	QueryDeleteRoom = `DELETE FROM rooms WHERE code = $1;`
)

const (
	QueryAddParticipant = `
		INSERT INTO participants (id, room_code, nickname, is_host, role, alive, order_no, word, joined_at, left_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	QueryGetParticipant = `
		SELECT id, room_code, nickname, is_host, role, alive, order_no, word, joined_at, left_at
		FROM participants
		WHERE id = $1;
	`
	QueryListActiveParticipants = `
		SELECT id, room_code, nickname, is_host, role, alive, order_no, word, joined_at, left_at
		FROM participants
		WHERE room_code = $1 AND left_at IS NULL
		ORDER BY joined_at ASC, seq ASC;
	`
	QueryUpdateParticipant = `
		UPDATE participants
		SET nickname = $2, is_host = $3, role = $4, alive = $5, order_no = $6, word = $7, left_at = $8
		WHERE id = $1;
	`
	QueryDeleteParticipantsByRoom = `DELETE FROM participants WHERE room_code = $1;`
)

const (
	QueryCreateRound = `
		INSERT INTO rounds (id, room_code, idx, phase, pass, accused_id, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	QueryExistsRound = `SELECT 1 FROM rounds WHERE room_code = $1 AND idx = $2;`
	QueryGetRound    = `
		SELECT id, room_code, idx, phase, pass, accused_id, started_at, ended_at
		FROM rounds
		WHERE room_code = $1 AND idx = $2;
	`
	QueryUpdateRound = `
		UPDATE rounds
		SET phase = $2, pass = $3, accused_id = $4, ended_at = $5
		WHERE id = $1;
	`
	// ballots и statements уходят каскадом
	QueryDeleteRoundsByRoom = `DELETE FROM rounds WHERE room_code = $1;`
)

const (
	QueryInsertBallot = `
		INSERT INTO ballots (id, round_id, voter_id, target_id, is_final, decision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (round_id, voter_id, is_final) DO NOTHING;
	`
	QueryListBallots = `
		SELECT id, round_id, voter_id, target_id, is_final, decision, created_at
		FROM ballots
		WHERE round_id = $1 AND is_final = $2
		ORDER BY created_at ASC;
	`
	QueryCountBallots = `SELECT COUNT(*) FROM ballots WHERE round_id = $1 AND is_final = $2;`
)

const (
	QueryInsertStatement = `
		INSERT INTO statements (id, round_id, participant_id, kind, pass, text, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	QueryListStatements = `
		SELECT id, round_id, participant_id, kind, pass, text, summary, created_at
		FROM statements
		WHERE round_id = $1
		ORDER BY created_at ASC;
	`
	QueryExistsStatement = `
		SELECT 1 FROM statements
		WHERE round_id = $1 AND participant_id = $2 AND kind = $3 AND pass = $4;
	`
	QueryCountStatements = `SELECT COUNT(*) FROM statements WHERE round_id = $1 AND kind = $2 AND pass = $3;`
)

const (
	QueryPickThemeInGroup = `
		SELECT id, theme_group, word_a, word_b, active
		FROM themes
		WHERE active AND theme_group = $1
		ORDER BY random()
		LIMIT 1;
	`
	QueryPickAnyTheme = `
		SELECT id, theme_group, word_a, word_b, active
		FROM themes
		WHERE active
		ORDER BY random()
		LIMIT 1;
	`
)

const (
	QueryAppendAudit = `
		INSERT INTO audit_log (id, room_code, participant_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
)
