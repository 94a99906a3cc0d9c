// Package reassembly collects indexed audio fragments per (room, participant)
// until a full utterance is assembled.
//
// Sessions live in a fixed number of shards selected by hashing the key, so
// writes to one key are serialized while distinct keys proceed in parallel.
// A completed key stays "in flight" until the caller releases it; a second
// completion for that key meanwhile is queued rather than handed out, so one
// participant's utterances are never processed concurrently.
package reassembly
