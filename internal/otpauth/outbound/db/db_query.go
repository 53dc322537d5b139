package db

const (
	queryInsertChallenge = `
INSERT INTO otp_challenges (id, email, purpose, code_hash, verified, attempts, max_attempts, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	// candidates for one guess, newest first with id as the explicit tie-break
	queryLockLiveChallenges = `
SELECT id, email, purpose, code_hash, verified, attempts, max_attempts, created_at, expires_at
FROM otp_challenges
WHERE email = $1
  AND purpose = $2
  AND verified = FALSE
  AND attempts < max_attempts
  AND expires_at > $3
ORDER BY created_at DESC, id DESC
LIMIT $4
FOR UPDATE`

	queryMarkChallengeVerified = `
UPDATE otp_challenges SET verified = TRUE
WHERE id = $1 AND verified = FALSE`

	queryIncrementChallengeAttempts = `
UPDATE otp_challenges SET attempts = attempts + 1
WHERE id = ANY($1) AND attempts < max_attempts`

	queryDeleteChallengesCreatedBefore = `
DELETE FROM otp_challenges WHERE created_at < $1`

	queryInsertSession = `
INSERT INTO otp_sessions (id, token_hash, email, user_id, purpose, verified_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	querySelectSession = `
SELECT id, token_hash, email, user_id, purpose, verified_at, expires_at
FROM otp_sessions
WHERE token_hash = $1`

	queryLockSession = querySelectSession + `
FOR UPDATE`

	queryBindSessionUser = `
UPDATE otp_sessions SET user_id = $2
WHERE id = $1 AND user_id IS NULL`

	queryDeleteSession = `
DELETE FROM otp_sessions WHERE token_hash = $1`

	queryDeleteSessionsByEmail = `
DELETE FROM otp_sessions WHERE email = $1`

	queryDeleteSessionsByUser = `
DELETE FROM otp_sessions WHERE user_id = $1`

	queryDeleteSessionsExpired = `
DELETE FROM otp_sessions WHERE expires_at <= $1`
)
