package core_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/JonMunkholm/dbpatch/internal/database"
	"github.com/JonMunkholm/dbpatch/internal/schema"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

var wolves = schema.MustNew("t", []schema.Column{
	{Name: "Id", Type: schema.TypeInt},
	schema.Varchar("Name", 32),
}, "Id")

// spawns has a composite key so ordering and exact-key checks have
// something to bite on.
var spawns = schema.MustNew("spawn", []schema.Column{
	{Name: "Map", Type: schema.TypeInt},
	{Name: "Guid", Type: schema.TypeLong},
	{Name: "X", Type: schema.TypeFloat},
	{Name: "Active", Type: schema.TypeBool},
	schema.Varchar("Note", 16),
}, "Map", "Guid")

func wolf(id int32, name string) []schema.Field {
	return []schema.Field{schema.Int("Id", id), schema.Str("Name", name)}
}

func record(id int32, name string) schema.Record {
	return schema.Record{schema.IntValue(id), schema.StringValue(name)}
}

// seeded returns a session holding the given rows of wolves, with an empty
// statement log.
func seeded(t *testing.T, script string) *database.MemSession {
	t.Helper()
	db := database.NewMemSession(wolves, spawns)
	assert.NilError(t, db.Apply(context.Background(), script))
	db.ResetLog()
	return db
}

func TestInsertEntry_DireWolf(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemSession(wolves)
	tbl := NewTable(wolves)

	assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(5, "Wolf")...))
	assert.DeepEqual(t, db.Statements(), []string{
		"SELECT Id,Name FROM t WHERE Id=5;",
		"INSERT INTO t (Id,Name) VALUES (5,'Wolf');",
	})
	assert.DeepEqual(t, tbl.Insertions(), []schema.Record{record(5, "Wolf")})
	assert.Assert(t, is.Len(tbl.Deletions(), 0))

	assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(5, "Dire Wolf")...))
	assert.DeepEqual(t, db.Statements()[2:], []string{
		"DELETE FROM t WHERE Id=5;",
		"INSERT INTO t (Id,Name) VALUES (5,'Dire Wolf');",
	})
	assert.DeepEqual(t, tbl.Insertions(), []schema.Record{record(5, "Dire Wolf")})
	assert.Assert(t, is.Len(tbl.Deletions(), 0))

	// The row did not exist before the session, so nothing needs deleting
	// on the target.
	assert.Equal(t, tbl.TablePatch(), "INSERT INTO t (Id,Name) VALUES (5,'Dire Wolf');\n")
	assert.Equal(t, tbl.RollbackPatch(), "DELETE FROM t WHERE Id=5;\n")
	assert.DeepEqual(t, db.Rows("t"), []schema.Record{record(5, "Dire Wolf")})
}

func TestInsertEntry_IdempotentReinsert(t *testing.T) {
	ctx := context.Background()

	t.Run("row already committed", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');")
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Wolf")...))
		assert.DeepEqual(t, db.Statements(), []string{"SELECT Id,Name FROM t WHERE Id=1;"})
		assert.Assert(t, !tbl.IsModified())
	})

	t.Run("row written this session", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Wolf")...))
		n := len(db.Statements())
		patch := tbl.TablePatch()

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Wolf")...))
		assert.Equal(t, len(db.Statements()), n)
		assert.Equal(t, tbl.TablePatch(), patch)
	})

	t.Run("replacement written again", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');")
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Dire Wolf")...))
		n := len(db.Statements())

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Dire Wolf")...))
		assert.Equal(t, len(db.Statements()), n)
	})
}

func TestInsertEntry_OverwriteDuality(t *testing.T) {
	ctx := context.Background()
	db := seeded(t, "INSERT INTO t (Id,Name) VALUES (3,'Boar');")
	tbl := NewTable(wolves)

	assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(3, "Tusked Boar")...))
	assert.DeepEqual(t, tbl.Insertions(), []schema.Record{record(3, "Tusked Boar")})
	assert.DeepEqual(t, tbl.Deletions(), []schema.Record{record(3, "Boar")})
	assert.Equal(t, tbl.TablePatch(),
		"DELETE FROM t WHERE Id=3;\n"+
			"INSERT INTO t (Id,Name) VALUES (3,'Tusked Boar');\n")
	assert.Equal(t, tbl.RollbackPatch(),
		"DELETE FROM t WHERE Id=3;\n"+
			"INSERT INTO t (Id,Name) VALUES (3,'Boar');\n")

	t.Run("second overwrite keeps the original", func(t *testing.T) {
		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(3, "Elder Boar")...))
		assert.DeepEqual(t, tbl.Insertions(), []schema.Record{record(3, "Elder Boar")})
		assert.DeepEqual(t, tbl.Deletions(), []schema.Record{record(3, "Boar")})
	})

	t.Run("restoring the original clears the key", func(t *testing.T) {
		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(3, "Boar")...))
		assert.Assert(t, !tbl.IsModified())
		assert.Equal(t, tbl.TablePatch(), "")
		assert.DeepEqual(t, db.Rows("t"), []schema.Record{record(3, "Boar")})
	})
}

func TestUndoRecognition(t *testing.T) {
	ctx := context.Background()

	t.Run("delete then reinsert committed row", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (2,'Bear');")
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 2)))
		assert.DeepEqual(t, tbl.Deletions(), []schema.Record{record(2, "Bear")})
		assert.Equal(t, tbl.TablePatch(), "DELETE FROM t WHERE Id=2;\n")
		assert.Equal(t, tbl.RollbackPatch(), "INSERT INTO t (Id,Name) VALUES (2,'Bear');\n")

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(2, "Bear")...))
		assert.Assert(t, is.Len(tbl.Insertions(), 0))
		assert.Assert(t, is.Len(tbl.Deletions(), 0))
		assert.Assert(t, !tbl.IsModified())
	})

	t.Run("insert then delete new row", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(9, "Spider")...))
		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 9)))
		assert.Assert(t, !tbl.IsModified())
		assert.Assert(t, is.Len(db.Rows("t"), 0))
	})

	t.Run("replace, delete, restore", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (4,'Raptor');")
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(4, "Ravager")...))
		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 4)))
		assert.Assert(t, is.Len(tbl.Insertions(), 0))
		assert.DeepEqual(t, tbl.Deletions(), []schema.Record{record(4, "Raptor")})

		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(4, "Raptor")...))
		assert.Assert(t, !tbl.IsModified())
	})
}

func TestDeleteEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("missing row is a no-op", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 1)))
		assert.DeepEqual(t, db.Statements(), []string{"SELECT Id,Name FROM t WHERE Id=1;"})
		assert.Assert(t, !tbl.IsModified())
	})

	t.Run("already deleted issues no SQL", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');")
		tbl := NewTable(wolves)

		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 1)))
		n := len(db.Statements())
		assert.NilError(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 1)))
		assert.Equal(t, len(db.Statements()), n)
	})
}

func TestKeyPreconditions(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemSession(spawns)
	tbl := NewTable(spawns)

	tests := []struct {
		name string
		err  error
		call func() error
	}{
		{
			name: "insert missing key column",
			err:  schema.ErrKeyNotCovered,
			call: func() error {
				return tbl.InsertEntry(ctx, db, schema.Int("Map", 1), schema.Str("Note", "x"))
			},
		},
		{
			name: "delete with subset of key",
			err:  schema.ErrKeyMismatch,
			call: func() error { return tbl.DeleteEntry(ctx, db, schema.Int("Map", 1)) },
		},
		{
			name: "delete with superset of key",
			err:  schema.ErrKeyMismatch,
			call: func() error {
				return tbl.DeleteEntry(ctx, db, schema.Int("Map", 1), schema.Long("Guid", 2), schema.Bool("Active", true))
			},
		},
		{
			name: "unknown column",
			err:  schema.ErrUnknownColumn,
			call: func() error {
				return tbl.InsertEntry(ctx, db, schema.Int("Map", 1), schema.Long("Guid", 2), schema.Int("Zone", 3))
			},
		},
		{
			name: "wrong value type",
			err:  schema.ErrTypeMismatch,
			call: func() error {
				return tbl.InsertEntry(ctx, db, schema.Int("Map", 1), schema.Int("Guid", 2))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			assert.Assert(t, errors.Is(err, tt.err), "got %v", err)
			assert.Assert(t, is.Len(db.Statements(), 0))
		})
	}
	assert.Assert(t, !tbl.IsModified())
}

func TestPatchOrderFollowsKey(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemSession(spawns)
	tbl := NewTable(spawns)

	for _, k := range []struct {
		m int32
		g int64
	}{{2, 1}, {1, 10}, {1, 9}} {
		assert.NilError(t, tbl.InsertEntry(ctx, db, schema.Int("Map", k.m), schema.Long("Guid", k.g)))
	}

	assert.Equal(t, tbl.TablePatch(),
		"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (1,9,0,0,'');\n"+
			"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (1,10,0,0,'');\n"+
			"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (2,1,0,0,'');\n")
}

func TestPatchRollbackInverse(t *testing.T) {
	ctx := context.Background()
	start := "INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (0,1,1.5,1,'gate');\n" +
		"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (0,2,-3.25,0,'well');\n" +
		"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (1,7,100,1,'camp');\n"

	type edit struct {
		del    bool
		fields []schema.Field
	}
	key := func(m int32, g int64) []schema.Field {
		return []schema.Field{schema.Int("Map", m), schema.Long("Guid", g)}
	}
	with := func(m int32, g int64, extra ...schema.Field) []schema.Field {
		return append(key(m, g), extra...)
	}

	sequences := map[string][]edit{
		"mixed": {
			{fields: with(0, 1, schema.Str("Note", "gate2"))},
			{del: true, fields: key(0, 2)},
			{fields: with(5, 5, schema.Float("X", 2.5), schema.Bool("Active", true))},
			{fields: with(1, 7, schema.Float("X", 100), schema.Bool("Active", true), schema.Str("Note", "camp"))},
		},
		"churn on one key": {
			{fields: with(0, 2, schema.Str("Note", "a"))},
			{del: true, fields: key(0, 2)},
			{fields: with(0, 2, schema.Str("Note", "b"))},
			{fields: with(0, 2, schema.Str("Note", "c"))},
		},
		"delete everything": {
			{del: true, fields: key(0, 1)},
			{del: true, fields: key(0, 2)},
			{del: true, fields: key(1, 7)},
			{del: true, fields: key(9, 9)},
		},
	}

	for name, edits := range sequences {
		t.Run(name, func(t *testing.T) {
			live := database.NewMemSession(spawns)
			assert.NilError(t, live.Apply(ctx, start))
			before := live.Rows("spawn")

			tbl := NewTable(spawns)
			for _, e := range edits {
				if e.del {
					assert.NilError(t, tbl.DeleteEntry(ctx, live, e.fields...))
				} else {
					assert.NilError(t, tbl.InsertEntry(ctx, live, e.fields...))
				}
			}

			target := database.NewMemSession(spawns)
			assert.NilError(t, target.Apply(ctx, start))

			assert.NilError(t, target.Apply(ctx, tbl.TablePatch()))
			assert.DeepEqual(t, target.Rows("spawn"), live.Rows("spawn"))

			assert.NilError(t, target.Apply(ctx, tbl.RollbackPatch()))
			assert.DeepEqual(t, target.Rows("spawn"), before)
		})
	}
}

func TestStatementFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("failed insert leaves change set untouched", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		db.FailOn("INSERT")
		tbl := NewTable(wolves)

		err := tbl.InsertEntry(ctx, db, wolf(1, "Wolf")...)
		var stmtErr *StatementError
		assert.Assert(t, errors.As(err, &stmtErr))
		assert.Equal(t, stmtErr.Statement, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');")
		assert.Assert(t, errors.Is(err, database.ErrInjected))
		assert.Assert(t, !tbl.IsModified())
	})

	t.Run("failure after delete keeps the delete", func(t *testing.T) {
		db := seeded(t, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');")
		db.FailOn("INSERT")
		tbl := NewTable(wolves)

		err := tbl.InsertEntry(ctx, db, wolf(1, "Dire Wolf")...)
		assert.Assert(t, errors.Is(err, database.ErrInjected))
		assert.DeepEqual(t, tbl.Deletions(), []schema.Record{record(1, "Wolf")})
		assert.Assert(t, is.Len(tbl.Insertions(), 0))
		assert.Assert(t, is.Len(db.Rows("t"), 0))

		// The rollback still restores the database.
		assert.Equal(t, tbl.RollbackPatch(), "INSERT INTO t (Id,Name) VALUES (1,'Wolf');\n")
	})

	t.Run("failed lookup issues nothing else", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		db.FailOn("SELECT")
		tbl := NewTable(wolves)

		assert.Assert(t, tbl.DeleteEntry(ctx, db, schema.Int("Id", 1)) != nil)
		assert.Assert(t, is.Len(db.Statements(), 1))
	})

	t.Run("failed delete keeps the earlier insertion", func(t *testing.T) {
		db := database.NewMemSession(wolves)
		tbl := NewTable(wolves)
		assert.NilError(t, tbl.InsertEntry(ctx, db, wolf(1, "Wolf")...))

		db.FailOn("DELETE")
		err := tbl.InsertEntry(ctx, db, wolf(1, "Dire Wolf")...)
		assert.Assert(t, errors.Is(err, database.ErrInjected))
		assert.DeepEqual(t, tbl.Insertions(), []schema.Record{record(1, "Wolf")})
		assert.DeepEqual(t, db.Rows("t"), []schema.Record{record(1, "Wolf")})
	})
}

func TestSetDefault(t *testing.T) {
	ctx := context.Background()
	db := database.NewMemSession(spawns)
	tbl := NewTable(spawns)

	assert.NilError(t, tbl.SetDefault(schema.Str("Note", "placeholder text"), schema.Bool("Active", true)))
	assert.NilError(t, tbl.InsertEntry(ctx, db, schema.Int("Map", 1), schema.Long("Guid", 1)))
	assert.Equal(t, tbl.TablePatch(),
		"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (1,1,0,1,'placeholder text');\n")

	t.Run("invalid default changes nothing", func(t *testing.T) {
		before := tbl.Defaults()
		err := tbl.SetDefault(schema.Float("X", 1), schema.Int("Active", 1))
		assert.Assert(t, errors.Is(err, schema.ErrTypeMismatch))
		assert.DeepEqual(t, tbl.Defaults(), before)
	})

	t.Run("explicit fields win over defaults", func(t *testing.T) {
		assert.NilError(t, tbl.InsertEntry(ctx, db, schema.Int("Map", 2), schema.Long("Guid", 1), schema.Bool("Active", false)))
		assert.DeepEqual(t, tbl.Insertions()[1][3], schema.BoolValue(false))
	})
}

func TestMax(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table gives zero value", func(t *testing.T) {
		db := database.NewMemSession(spawns)
		v, err := NewTable(spawns).Max(ctx, db, "Guid")
		assert.NilError(t, err)
		assert.Equal(t, v, schema.LongValue(0))
		assert.DeepEqual(t, db.Statements(), []string{"SELECT MAX(Guid) FROM spawn;"})
	})

	t.Run("largest value", func(t *testing.T) {
		db := database.NewMemSession(spawns)
		assert.NilError(t, db.Apply(ctx,
			"INSERT INTO spawn (Map,Guid,X) VALUES (1,40,2.5);\n"+
				"INSERT INTO spawn (Map,Guid,X) VALUES (1,41,-7);"))
		tbl := NewTable(spawns)

		v, err := tbl.Max(ctx, db, "Guid")
		assert.NilError(t, err)
		assert.Equal(t, v, schema.LongValue(41))

		v, err = tbl.Max(ctx, db, "X")
		assert.NilError(t, err)
		assert.Equal(t, v, schema.FloatValue(2.5))
	})

	t.Run("unknown column", func(t *testing.T) {
		db := database.NewMemSession(spawns)
		_, err := NewTable(spawns).Max(ctx, db, "Entry")
		assert.Assert(t, errors.Is(err, schema.ErrUnknownColumn))
		assert.Assert(t, is.Len(db.Statements(), 0))
	})
}
