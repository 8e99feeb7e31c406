package storage

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      device_type,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    device_type,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    device_type,
    config
FROM sessions
ORDER BY id`

	insertStatsSQL = `
INSERT INTO pipeline_stats (session_id,
                            timestamp,
                            blocks,
                            samples,
                            overruns,
                            underruns,
                            read_errors,
                            deadline_misses,
                            send_errors,
                            audio_drops,
                            recorder_drops,
                            channels)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectStatsSQL = `
SELECT
    session_id,
    timestamp,
    blocks,
    samples,
    overruns,
    underruns,
    read_errors,
    deadline_misses,
    send_errors,
    audio_drops,
    recorder_drops,
    channels
FROM pipeline_stats
WHERE
    session_id = ?
ORDER BY id`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_stats_session ON pipeline_stats (session_id, timestamp)`
)
