// Package quiz implements the trivia round engine: fuzzy answer matching,
// per-channel named cooldowns, question selection and round finalization, the
// per-channel round state machine, and the lazy session registry.
//
// The package is transport-agnostic. Chat delivery, the Helix API, and the
// Postgres store are consumed through small interfaces (Notifier,
// QuestionStore, ScoreStore, ChannelStore) so the engine can be exercised
// end-to-end with in-memory fakes.
package quiz
