// Package session houses concrete implementations of the core.SessionStore.
// The interface itself (and the Session struct) live in the core package so
// the runner depends only on the contract. Keeping implementations here lets
// the wiring layer pick a backend without changing calling code:
//
//   - InMemoryStore for tests and ephemeral servers
//   - sqlite.Store for a conversation that survives restarts (memory.db)
//
// A session id is the only coordinate: reusing it resumes the conversation,
// a new id starts fresh.
package session
