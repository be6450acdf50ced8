// Package quality implements the per-shot keep/discard state machine.
//
// A shot starts with Keep=true. Every predicate is evaluated, in the order
// its fields appear in the record, and any failure downgrades Keep to false.
// Evaluation never stops early, so diagnostics can report every violated
// rule, and a rejected shot is never restored. No predicate returns an error:
// sentinel values and a zero noise floor are data conditions, not faults.
//
// The two record layouts differ in the signal-to-noise threshold (15 for
// Legacy, 20 for Release33) and in the cloud predicate, which is selected as
// a CloudPredicate strategy by layout version.
package quality
