package postgres

// Embedded migrations. The ledger table carries the engine's one hard
// uniqueness guarantee: UNIQUE (student_id, source_ref) is what turns a
// retried delivery into a no-op instead of a double award.

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_point_events",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_badge_awards",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_enrollments",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS point_events (
    id          UUID PRIMARY KEY,
    student_id  TEXT NOT NULL,
    subject_id  TEXT NOT NULL DEFAULT '',
    points      INTEGER NOT NULL CHECK (points <> 0),
    reason      TEXT NOT NULL,
    source_ref  TEXT NOT NULL,
    occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT point_events_student_source_unique UNIQUE (student_id, source_ref)
);

CREATE INDEX IF NOT EXISTS idx_point_events_student
    ON point_events (student_id, occurred_at);

CREATE INDEX IF NOT EXISTS idx_point_events_subject
    ON point_events (subject_id, occurred_at)
    WHERE subject_id <> '';

CREATE INDEX IF NOT EXISTS idx_point_events_recorded
    ON point_events (student_id, recorded_at DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS point_events;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS badge_awards (
    id         UUID PRIMARY KEY,
    student_id TEXT NOT NULL,
    badge_id   TEXT NOT NULL,
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT badge_awards_student_badge_unique UNIQUE (student_id, badge_id)
);

CREATE INDEX IF NOT EXISTS idx_badge_awards_student
    ON badge_awards (student_id, awarded_at);
`

const migration002Down = `
DROP TABLE IF EXISTS badge_awards;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS enrollments (
    subject_id  TEXT NOT NULL,
    student_id  TEXT NOT NULL,
    enrolled_at TIMESTAMP WITH TIME ZONE NOT NULL,

    PRIMARY KEY (subject_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_subject
    ON enrollments (subject_id, enrolled_at);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollments;
`
