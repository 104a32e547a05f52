package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/JonMunkholm/dbpatch/internal/core"
	"github.com/JonMunkholm/dbpatch/internal/database"
	"github.com/JonMunkholm/dbpatch/internal/schema"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func newTestService(t *testing.T) (*Service, *database.MemSession, string) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	Register(TableDefinition{Schema: wolves, Group: "World", Label: "Wolves"})
	Register(TableDefinition{Schema: spawns, Group: "World"})

	dir := t.TempDir()
	db := database.NewMemSession(wolves, spawns)
	svc := NewService(db, Config{
		MaxWait: time.Second,
		Session: SessionConfig{
			Dir:     dir,
			Prepend: "BEGIN;\n",
			Append:  "COMMIT;\n",
		},
	})
	return svc, db, dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	return string(b)
}

func TestServiceEdits(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	assert.Assert(t, !svc.IsModified())
	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(5, "Wolf")))
	assert.NilError(t, svc.InsertEntry(ctx, "spawn", []schema.Field{schema.Int("Map", 1), schema.Long("Guid", 2)}))
	assert.Assert(t, svc.IsModified())

	patch, err := svc.TablePatch("t")
	assert.NilError(t, err)
	assert.Equal(t, patch, "INSERT INTO t (Id,Name) VALUES (5,'Wolf');\n")

	rollback, err := svc.RollbackPatch("t")
	assert.NilError(t, err)
	assert.Equal(t, rollback, "DELETE FROM t WHERE Id=5;\n")

	// Registry order is group then table name.
	assert.Equal(t, svc.SessionPatch(),
		"INSERT INTO spawn (Map,Guid,X,Active,Note) VALUES (1,2,0,0,'');\n"+
			"INSERT INTO t (Id,Name) VALUES (5,'Wolf');\n")
	assert.Equal(t, svc.SessionRollback(),
		"DELETE FROM spawn WHERE Map=1 AND Guid=2;\n"+
			"DELETE FROM t WHERE Id=5;\n")

	assert.NilError(t, svc.DeleteEntry(ctx, "t", []schema.Field{schema.Int("Id", 5)}))
	patch, err = svc.TablePatch("t")
	assert.NilError(t, err)
	assert.Equal(t, patch, "")
	assert.Assert(t, is.Len(db.Rows("t"), 0))
}

func TestServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	err := svc.InsertEntry(ctx, "boss", wolf(1, "Hogger"))
	assert.Assert(t, errors.Is(err, ErrUnknownTable))
	_, err = svc.TablePatch("boss")
	assert.Assert(t, errors.Is(err, ErrUnknownTable))
	_, err = svc.Describe("boss")
	assert.Assert(t, errors.Is(err, ErrUnknownTable))

	err = svc.DeleteEntry(ctx, "t", wolf(1, "Hogger"))
	assert.Assert(t, errors.Is(err, schema.ErrKeyMismatch))
	assert.Assert(t, is.Contains(err.Error(), "delete from t"))

	db.FailOn("INSERT")
	err = svc.InsertEntry(ctx, "t", wolf(1, "Hogger"))
	var stmtErr *StatementError
	assert.Assert(t, errors.As(err, &stmtErr))
	assert.Equal(t, MapError(err).Code, "DB007")

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := svc.InsertEntry(cctx, "t", wolf(2, "Gnoll"))
		assert.Assert(t, errors.Is(err, context.Canceled))
	})
}

func TestServiceBusy(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Assert(t, svc.Limiter().TryAcquire())
	defer svc.Limiter().Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := svc.InsertEntry(ctx, "t", wolf(1, "Wolf"))
	assert.Assert(t, err != nil)
	assert.Assert(t, !svc.IsModified())
}

func TestServiceStatusAndDescribe(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)
	assert.NilError(t, db.Apply(ctx, "INSERT INTO t (Id,Name) VALUES (1,'Wolf');"))

	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(1, "Dire Wolf")))
	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(2, "Worg")))

	status := svc.Status()
	assert.Assert(t, status.Modified)
	assert.Assert(t, is.Len(status.Tables, 2))
	assert.DeepEqual(t, status.Tables[1], TableStatus{
		Table: "t", Group: "World", Label: "Wolves",
		Insertions: 2, Deletions: 1, Modified: true,
	})
	assert.Equal(t, status.Tables[0].Label, "spawn")
	assert.Assert(t, !status.Tables[0].Modified)

	detail, err := svc.Describe("t")
	assert.NilError(t, err)
	assert.DeepEqual(t, detail.Columns, []ColumnInfo{
		{Name: "Id", Type: "int", Key: true},
		{Name: "Name", Type: "string", Size: 32},
	})
	assert.Assert(t, is.Len(detail.Inserted, 2))
	assert.Equal(t, detail.Deleted[0]["Name"], "Wolf")
}

func TestServiceSetDefaultAndMax(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	assert.NilError(t, svc.SetDefault(ctx, "spawn", []schema.Field{schema.Str("Note", "auto")}))
	err := svc.SetDefault(ctx, "spawn", []schema.Field{schema.Str("Map", "x")})
	assert.Assert(t, errors.Is(err, schema.ErrTypeMismatch))

	for g := int64(10); g <= 12; g++ {
		assert.NilError(t, svc.InsertEntry(ctx, "spawn", []schema.Field{schema.Int("Map", 0), schema.Long("Guid", g)}))
	}
	v, err := svc.Max(ctx, "spawn", "Guid")
	assert.NilError(t, err)
	assert.Equal(t, v, schema.LongValue(12))

	patch, err := svc.TablePatch("spawn")
	assert.NilError(t, err)
	assert.Assert(t, is.Contains(patch, "VALUES (0,10,0,0,'auto');"))
}

func TestSaveSession(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newTestService(t)

	_, err := svc.SaveSession(ctx)
	assert.Assert(t, errors.Is(err, ErrNothingToSave))

	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(5, "Wolf")))
	files, err := svc.SaveSession(ctx)
	assert.NilError(t, err)

	assert.Equal(t, files.Patch, filepath.Join(dir, files.ID+".patch.sql"))
	assert.Equal(t, files.Rollback, filepath.Join(dir, files.ID+".rollback.sql"))
	assert.Equal(t, readFile(t, files.Patch),
		"BEGIN;\nINSERT INTO t (Id,Name) VALUES (5,'Wolf');\nCOMMIT;\n")
	assert.Equal(t, readFile(t, files.Rollback),
		"BEGIN;\nDELETE FROM t WHERE Id=5;\nCOMMIT;\n")

	// Saving leaves the session in place.
	assert.Assert(t, svc.IsModified())

	entries, err := os.ReadDir(dir)
	assert.NilError(t, err)
	for _, e := range entries {
		assert.Assert(t, !strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestCommitSession(t *testing.T) {
	ctx := context.Background()
	svc, db, _ := newTestService(t)

	assert.NilError(t, svc.SetDefault(ctx, "t", []schema.Field{schema.Str("Name", "Wolf")}))
	assert.NilError(t, svc.InsertEntry(ctx, "t", []schema.Field{schema.Int("Id", 5)}))

	files, err := svc.CommitSession(ctx)
	assert.NilError(t, err)
	assert.Equal(t, readFile(t, files.Patch),
		"BEGIN;\nINSERT INTO t (Id,Name) VALUES (5,'Wolf');\nCOMMIT;\n")
	assert.Assert(t, !svc.IsModified())
	assert.Equal(t, svc.SessionPatch(), "")

	// The next session starts from the current database state.
	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(5, "Dire Wolf")))
	patch, err := svc.TablePatch("t")
	assert.NilError(t, err)
	assert.Equal(t, patch,
		"DELETE FROM t WHERE Id=5;\n"+
			"INSERT INTO t (Id,Name) VALUES (5,'Dire Wolf');\n")
	assert.DeepEqual(t, db.Rows("t"), []schema.Record{record(5, "Dire Wolf")})

	detail, err := svc.Describe("t")
	assert.NilError(t, err)
	assert.Equal(t, detail.Defaults["Name"], "")

	_, err = svc.CommitSession(ctx)
	assert.NilError(t, err)
	_, err = svc.CommitSession(ctx)
	assert.Assert(t, errors.Is(err, ErrNothingToSave))
}

func TestStartAutosave(t *testing.T) {
	svc, _, dir := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartAutosave(ctx, time.Hour)
		close(done)
	}()

	assert.NilError(t, svc.InsertEntry(context.Background(), "t", wolf(5, "Wolf")))
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("autosave did not stop")
	}

	// Cancellation writes one final copy.
	assert.Equal(t, readFile(t, filepath.Join(dir, AutosaveName+".patch.sql")),
		"BEGIN;\nINSERT INTO t (Id,Name) VALUES (5,'Wolf');\nCOMMIT;\n")
	assert.Equal(t, readFile(t, filepath.Join(dir, AutosaveName+".rollback.sql")),
		"BEGIN;\nDELETE FROM t WHERE Id=5;\nCOMMIT;\n")
}

// runAutosaveOnce starts the job and cancels it at once, which performs a
// single final pass.
func runAutosaveOnce(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.StartAutosave(ctx, time.Hour)
}

func TestAutosaveFollowsSessionState(t *testing.T) {
	ctx := context.Background()
	svc, _, dir := newTestService(t)
	patchPath := filepath.Join(dir, AutosaveName+".patch.sql")
	rollbackPath := filepath.Join(dir, AutosaveName+".rollback.sql")

	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(5, "Wolf")))
	runAutosaveOnce(t, svc)
	assert.Equal(t, readFile(t, patchPath),
		"BEGIN;\nINSERT INTO t (Id,Name) VALUES (5,'Wolf');\nCOMMIT;\n")

	// Committing retires the autosave copy of the committed session.
	_, err := svc.CommitSession(ctx)
	assert.NilError(t, err)
	for _, p := range []string{patchPath, rollbackPath} {
		_, err := os.Stat(p)
		assert.Assert(t, os.IsNotExist(err), p)
	}

	// A later edit that is undone leaves nothing to recover either.
	assert.NilError(t, svc.InsertEntry(ctx, "t", wolf(6, "Worg")))
	runAutosaveOnce(t, svc)
	_, err = os.Stat(patchPath)
	assert.NilError(t, err)

	assert.NilError(t, svc.DeleteEntry(ctx, "t", []schema.Field{schema.Int("Id", 6)}))
	assert.Assert(t, !svc.IsModified())
	runAutosaveOnce(t, svc)
	for _, p := range []string{patchPath, rollbackPath} {
		_, err := os.Stat(p)
		assert.Assert(t, os.IsNotExist(err), p)
	}
}

func TestStartAutosave_Disabled(t *testing.T) {
	svc, _, dir := newTestService(t)
	assert.NilError(t, svc.InsertEntry(context.Background(), "t", wolf(5, "Wolf")))

	// A zero interval returns at once without writing.
	svc.StartAutosave(context.Background(), 0)
	_, err := os.Stat(filepath.Join(dir, AutosaveName+".patch.sql"))
	assert.Assert(t, os.IsNotExist(err))
}
