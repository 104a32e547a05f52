package core

import (
	"github.com/JonMunkholm/dbpatch/internal/schema"
	sorted "github.com/tobshub/go-sortedmap"
)

// changeSet maps primary keys to full records, iterated in ascending key
// order so rendered patches are deterministic.
type changeSet struct {
	schema *schema.Schema
	m      *sorted.SortedMap[string, schema.Record]
}

func newChangeSet(s *schema.Schema) *changeSet {
	return &changeSet{
		schema: s,
		m: sorted.New[string, schema.Record](0, func(a, b schema.Record) bool {
			return schema.CompareKeys(s.KeyOf(a), s.KeyOf(b)) < 0
		}),
	}
}

func (c *changeSet) get(k schema.Key) (schema.Record, bool) {
	return c.m.Get(k.ID())
}

func (c *changeSet) put(k schema.Key, r schema.Record) {
	id := k.ID()
	if !c.m.Insert(id, r) {
		c.m.Replace(id, r)
	}
}

func (c *changeSet) remove(k schema.Key) {
	c.m.Delete(k.ID())
}

func (c *changeSet) len() int {
	return c.m.Len()
}

// records returns the stored records in key order.
func (c *changeSet) records() []schema.Record {
	out := make([]schema.Record, 0, c.m.Len())
	if c.m.Len() == 0 {
		return out
	}
	iterCh, err := c.m.IterCh()
	if err != nil {
		return out
	}
	defer iterCh.Close()
	for rec := range iterCh.Records() {
		out = append(out, rec.Val)
	}
	return out
}
