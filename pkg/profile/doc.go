// Package profile defines the durable user profile record and the stores that
// hold it.
//
// A profile record describes the application-level attributes of an identity:
// display name, role, bio, avatar and course enrollment. Records are keyed by
// the identity-provider-assigned ID and live in a remote Store, which is the
// source of truth. The package ships three Store implementations: a
// mutex-guarded in-memory store for tests and single-process apps, a MongoDB
// store, and a PostgreSQL store that keeps each record as a jsonb document.
//
// Partial updates are expressed as a Patch of pointer fields and applied with
// whole-field replacement; nested structures are never deep-merged.
//
// # Usage
//
//	store := profile.NewMemoryStore()
//	user := profile.NewUser("u1", "a@b.com", "Ann", profile.RoleStudent, time.Now())
//	if err := store.Put(ctx, user); err != nil {
//	    // handle error
//	}
//
// Remote stores are created from env-driven Config structs:
//
//	var cfg profile.MongoConfig
//	config.MustLoad(&cfg)
//	store, err := profile.ConnectMongo(ctx, cfg)
package profile
