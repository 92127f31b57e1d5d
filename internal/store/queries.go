package store

// Snapshot queries.
const (
	queryLockSnapshotItem = `SELECT pg_advisory_xact_lock(hashtext(@user_id::text || '/' || @item_id::text))`

	queryInsertSnapshot = `
		INSERT INTO snapshots (
			user_id, item_id, title, price, image_url, captured_at, captured_on
		)
		SELECT @user_id::uuid, @item_id::text, @title::text, @price::numeric,
			@image_url::text, @captured_at::timestamptz, @captured_on::date
		WHERE NOT EXISTS (
			SELECT 1 FROM (
				SELECT price, captured_on FROM snapshots
				WHERE user_id = @user_id::uuid AND item_id = @item_id::text
				ORDER BY captured_at DESC, id DESC
				LIMIT 1
			) latest
			WHERE latest.price = @price::numeric AND latest.captured_on = @captured_on::date
		)`
)

// User queries.
const (
	queryInsertUser = `
		INSERT INTO users (username, api_key)
		VALUES ($1, $2)
		RETURNING id, created_at`

	queryGetUserByAPIKey = `
		SELECT id, username, api_key, created_at
		FROM users
		WHERE api_key = $1`

	queryListUsers = `
		SELECT id, username, api_key, created_at
		FROM users
		ORDER BY created_at, username`
)

// Scheduler queries.
const (
	queryInsertJobRun = `
		INSERT INTO job_runs (job_name)
		VALUES ($1)
		RETURNING id`

	queryCompleteJobRun = `
		UPDATE job_runs SET
			completed_at  = now(),
			status        = $2,
			error_text    = $3,
			rows_affected = $4
		WHERE id = $1`

	queryListJobRuns = `
		SELECT id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2`

	queryListLatestJobRuns = `
		SELECT DISTINCT ON (job_name)
			id, job_name, started_at, completed_at, status,
			COALESCE(error_text, ''), rows_affected
		FROM job_runs
		ORDER BY job_name, started_at DESC`

	queryMarkStaleJobRunsCrashed = `
		UPDATE job_runs SET
			status       = 'crashed',
			completed_at = now()
		WHERE status = 'running' AND started_at < $1`

	queryDeleteOldJobRuns = `
		DELETE FROM job_runs WHERE started_at < $1`
)
