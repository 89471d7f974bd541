package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL_Postgres(t *testing.T) {
	sql, err := UpsertSQL(Postgres, UpsertConfig{
		Table:        "subtasks",
		Columns:      []string{"id", "task_id", "name", "importance"},
		ConflictKeys: []string{"task_id", "name"},
		Returning:    "id",
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "subtasks" ("id", "task_id", "name", "importance") VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("task_id", "name") DO UPDATE SET "importance" = excluded."importance" RETURNING "id"`,
		sql)
}

func TestUpsertSQL_SQLite(t *testing.T) {
	sql, err := UpsertSQL(SQLite, UpsertConfig{
		Table:        "timelines",
		Columns:      []string{"id", "vendor_id", "phase", "year", "aps_score"},
		ConflictKeys: []string{"vendor_id", "phase", "year"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "timelines" ("id", "vendor_id", "phase", "year", "aps_score") VALUES (?, ?, ?, ?, ?) `+
			`ON CONFLICT ("vendor_id", "phase", "year") DO UPDATE SET "aps_score" = excluded."aps_score"`,
		sql)
}

func TestUpsertSQL_ExplicitUpdateColsAndDoNothing(t *testing.T) {
	sql, err := UpsertSQL(Postgres, UpsertConfig{
		Table:        "vendors",
		Columns:      []string{"id", "task_id", "name"},
		ConflictKeys: []string{"task_id", "name"},
		UpdateCols:   []string{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestUpsertSQL_Errors(t *testing.T) {
	_, err := UpsertSQL(Postgres, UpsertConfig{Table: "t", ConflictKeys: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = UpsertSQL(Postgres, UpsertConfig{Table: "t", Columns: []string{"id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")

	assert.Panics(t, func() { MustUpsertSQL(Postgres, UpsertConfig{Table: "t"}) })
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"vendors"`, sanitizeTable("vendors"))
	assert.Equal(t, `"public"."vendors"`, sanitizeTable("public.vendors"))
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "$3", Placeholder(Postgres, 3))
	assert.Equal(t, "?", Placeholder(SQLite, 3))
}
