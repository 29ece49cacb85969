// Package store provides the generic collection store the engine
// persists into: insert with exact-duplicate rejection, and
// find/update/remove/search by predicate. The engine sequences multi-step
// mutations itself and assumes no transactions from the store.
package store

// Predicate matches documents in a collection
type Predicate func(doc interface{}) bool

// Store is a minimal document store keyed by collection name
type Store interface {
	// Insert adds a document, returning false when an exact duplicate
	// (by canonical serialization) already exists
	Insert(collection string, doc interface{}) bool

	// Find returns the first matching document
	Find(collection string, match Predicate) (interface{}, bool)

	// Update replaces the first matching document with the value the
	// apply function returns
	Update(collection string, match Predicate, apply func(doc interface{}) interface{}) bool

	// Remove deletes all matching documents and returns the count
	Remove(collection string, match Predicate) int

	// Search returns all matching documents in insertion order
	Search(collection string, match Predicate) []interface{}

	// Collection returns all documents in insertion order
	Collection(collection string) []interface{}

	// Size returns the number of documents in a collection
	Size(collection string) int

	// Clean drops all collections
	Clean()
}
