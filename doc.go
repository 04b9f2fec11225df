// Package docstore is an embeddable document store over a pluggable ordered
// key-value engine. Collections hold JSON documents keyed by a generic
// identifier type, with secondary indexes that bucket identity hashes by
// indexed value and a typed facade for mapping documents onto Go structs.
//
// Engines are provided for in-process memory, bbolt files, Redis, PostgreSQL,
// S3-compatible object stores and Google Cloud Storage. Any StoreRegistry
// implementation plugs in the same way.
//
// Basic usage:
//
//	db := docstore.NewDatabase(docstore.NewMemoryRegistry())
//	users, _ := db.Collection(ctx, "users")
//	users.Insert(ctx, docstore.Document{"_id": "alice", "age": 30})
//	users.CreateIndex(ctx, "age")
//	matches, _ := users.Find(ctx, "age", 30)
package docstore
