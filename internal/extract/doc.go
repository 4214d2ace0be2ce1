// Package extract turns email messages into raw actionable items using a
// chain of interchangeable AI providers.
//
// Each provider adapter exposes a single capability: given one message,
// produce zero or more raw items or fail with a typed error. The chain
// tries adapters in a fixed priority order and falls back to a
// deterministic heuristic when every adapter fails, so no message is ever
// dropped silently.
package extract
