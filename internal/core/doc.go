// Package core provides the change-tracking table engine and the editing
// service built on top of it.
//
// This package is independent of any UI or transport layer. It can be used by
// web handlers, CLI tools, or tests without modification.
//
// # Table Engine
//
// A [Table] applies each edit to the live database right away and folds it
// into two change sets, insertions and deletions, keyed by primary key. From
// those alone it renders a forward patch ([Table.TablePatch]) and a rollback
// patch ([Table.RollbackPatch]); the database is never re-read to rebuild
// history. Applying the patch and then the rollback to the starting state
// leaves it unchanged.
//
// Edits go through a [DBSession]. The engine checks Succeeded after every
// statement and stops at the first failure, returning a [*StatementError].
// Multi-statement edits are not transactional.
//
// # Table Registry
//
// Tables are registered at init time using [Register]:
//
//	core.Register(core.TableDefinition{
//	    Schema: schema.MustNew("creature_template", columns, "Entry"),
//	    Group:  "World",
//	    Label:  "Creatures",
//	})
//
// # Service
//
// [Service] holds one engine per registered table and serializes access to
// the shared session with an [EditLimiter]. It renders whole-session scripts,
// writes them to the session directory ([Service.SaveSession]), and can
// commit a session, which saves it and starts over ([Service.CommitSession]).
// [Service.StartAutosave] keeps a rolling copy on disk.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB007: Database errors
//   - KEY001-KEY002: Primary-key contract errors
//   - COL001-COL003: Column contract errors
//   - VAL001-VAL003: Value conversion and import errors
//   - TBL001: Unknown table
//   - EDIT001-EDIT002: Session errors
//   - REQ001-REQ003: Request cancelled, timed out or malformed
package core
