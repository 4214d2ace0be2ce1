package task

import (
	"github.com/agnivade/levenshtein"
)

// Known is the durable fingerprint of a task from a prior run, keyed by
// task identifier. Known tasks are carried forward with their recorded
// state and never re-submitted to calendar sync. EmailID and Title are
// retained so near-duplicate matching works across runs, not only within
// one.
type Known struct {
	Status  SyncStatus
	EventID string
	EmailID string
	Title   string
}

// Similarity returns the normalized Levenshtein similarity of two titles
// in [0, 1], computed on their canonical comparison form. 1 means equal.
func Similarity(a, b string) float64 {
	na, nb := normalizeKey(a), normalizeKey(b)
	if na == nb {
		return 1
	}
	longest := max(len([]rune(na)), len([]rune(nb)))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(longest)
}

// Dedup partitions the newly normalized tasks of a run into genuinely new
// tasks and already-known tasks.
//
// Two tasks are duplicates iff they share an identifier, or their titles
// are similar above the threshold and they come from the same source
// message. The second rule guards against near-identical titles extracted
// from the same email by different providers, both within one run and
// against the fingerprints of prior runs: a title that drifted in
// punctuation or casing between runs hashes to a new identifier but still
// matches its fingerprint by similarity, so it is carried instead of
// producing a second calendar event.
//
// Tasks matching a prior fingerprint are returned in carried with the
// recorded sync status and event id. Within-run duplicates are dropped,
// first occurrence wins.
func Dedup(tasks []Task, known map[string]Known, threshold float64) (fresh, carried []Task) {
	var kept []Task
	seen := make(map[string]struct{}, len(tasks))

	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		if nearDuplicate(kept, t, threshold) {
			continue
		}
		seen[t.ID] = struct{}{}
		kept = append(kept, t)
	}

	for _, t := range kept {
		k, ok := known[t.ID]
		if !ok {
			k, ok = nearKnown(known, t, threshold)
		}
		if ok {
			t.Status = k.Status
			t.EventID = k.EventID
			carried = append(carried, t)
			continue
		}
		fresh = append(fresh, t)
	}
	return fresh, carried
}

// nearDuplicate reports whether t is a near-duplicate of an already kept
// task from the same source message.
func nearDuplicate(kept []Task, t Task, threshold float64) bool {
	for _, prior := range kept {
		if prior.Source.EmailID != t.Source.EmailID {
			continue
		}
		if Similarity(prior.Title, t.Title) >= threshold {
			return true
		}
	}
	return false
}

// nearKnown looks up a fingerprint whose title is a near-duplicate of t
// from the same source message.
func nearKnown(known map[string]Known, t Task, threshold float64) (Known, bool) {
	for _, k := range known {
		if k.EmailID != t.Source.EmailID {
			continue
		}
		if Similarity(k.Title, t.Title) >= threshold {
			return k, true
		}
	}
	return Known{}, false
}
