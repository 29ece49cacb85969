package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TestMemoryInsert will reject exact duplicates by canonical content
func TestMemoryInsert(t *testing.T) {
	m := NewMemory()

	assert.True(t, m.Insert("things", &record{Name: "a", Count: 1}))
	assert.True(t, m.Insert("things", &record{Name: "b", Count: 1}))
	assert.False(t, m.Insert("things", &record{Name: "a", Count: 1}))
	assert.Equal(t, 2, m.Size("things"))

	// same content expressed as a map is still a duplicate
	assert.False(t, m.Insert("things", map[string]interface{}{"count": 1, "name": "a"}))
}

// TestMemoryFind will return the first match in insertion order
func TestMemoryFind(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})
	m.Insert("things", &record{Name: "a", Count: 2})

	doc, found := m.Find("things", func(d interface{}) bool {
		return d.(*record).Name == "a"
	})
	require.True(t, found)
	assert.Equal(t, 1, doc.(*record).Count)

	_, found = m.Find("things", func(d interface{}) bool { return false })
	assert.False(t, found)

	_, found = m.Find("missing", func(d interface{}) bool { return true })
	assert.False(t, found)
}

// TestMemoryUpdate will replace only the first match
func TestMemoryUpdate(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})

	updated := m.Update("things",
		func(d interface{}) bool { return d.(*record).Name == "a" },
		func(d interface{}) interface{} {
			r := d.(*record)
			r.Count = 9
			return r
		})
	require.True(t, updated)

	doc, _ := m.Find("things", func(d interface{}) bool { return true })
	assert.Equal(t, 9, doc.(*record).Count)

	assert.False(t, m.Update("things",
		func(d interface{}) bool { return false },
		func(d interface{}) interface{} { return d }))
}

// TestMemoryRemove will delete all matches and report the count
func TestMemoryRemove(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})
	m.Insert("things", &record{Name: "b", Count: 2})
	m.Insert("things", &record{Name: "a", Count: 3})

	removed := m.Remove("things", func(d interface{}) bool {
		return d.(*record).Name == "a"
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Size("things"))

	doc, found := m.Find("things", func(d interface{}) bool { return true })
	require.True(t, found)
	assert.Equal(t, "b", doc.(*record).Name)
}

// TestMemorySearch will preserve insertion order
func TestMemorySearch(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})
	m.Insert("things", &record{Name: "b", Count: 2})
	m.Insert("things", &record{Name: "c", Count: 3})

	out := m.Search("things", func(d interface{}) bool {
		return d.(*record).Count > 1
	})
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].(*record).Name)
	assert.Equal(t, "c", out[1].(*record).Name)
}

// TestMemoryCollectionIsolation will hand callers a copy of the slice
func TestMemoryCollectionIsolation(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})

	docs := m.Collection("things")
	require.Len(t, docs, 1)
	docs[0] = nil

	again := m.Collection("things")
	require.Len(t, again, 1)
	assert.NotNil(t, again[0])
}

// TestMemoryClean will drop everything
func TestMemoryClean(t *testing.T) {
	m := NewMemory()
	m.Insert("things", &record{Name: "a", Count: 1})
	m.Insert("others", &record{Name: "b", Count: 2})

	m.Clean()
	assert.Zero(t, m.Size("things"))
	assert.Zero(t, m.Size("others"))
}
