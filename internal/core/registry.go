package core

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// The registry keeps definitions sorted by group, then table name. This is
// the order session scripts and the review page list tables in.
var (
	registryMu sync.RWMutex
	registered []TableDefinition
)

func registryLess(a, b TableDefinition) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Key() < b.Key()
}

// Register adds a table definition. It panics on a nil schema or a table
// name registered twice; both are programming errors in a tables package.
func Register(def TableDefinition) {
	if def.Schema == nil {
		panic("core.Register: nil schema")
	}
	if def.Label == "" {
		def.Label = def.Key()
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	for _, d := range registered {
		if d.Key() == def.Key() {
			panic(fmt.Sprintf("table already registered: %s", def.Key()))
		}
	}
	i := sort.Search(len(registered), func(i int) bool { return registryLess(def, registered[i]) })
	registered = slices.Insert(registered, i, def)
}

// Get looks a definition up by table name.
func Get(table string) (TableDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, d := range registered {
		if d.Key() == table {
			return d, true
		}
	}
	return TableDefinition{}, false
}

// All returns every definition in registry order.
func All() []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Clone(registered)
}

// ByGroup returns the definitions of one group, sorted by table name.
func ByGroup(group string) []TableDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var out []TableDefinition
	for _, d := range registered {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

// Groups returns the distinct group names in sorted order.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var groups []string
	for _, d := range registered {
		if len(groups) == 0 || groups[len(groups)-1] != d.Group {
			groups = append(groups, d.Group)
		}
	}
	return groups
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registered)
}

// Clear empties the registry. Tests use it between cases.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registered = nil
}
