// Package prd splits a requirements document into titled sections and
// plans them into task-generation batches.
//
// Segmentation recognizes two boundary mechanisms, in priority order:
// explicit <section title="..."> ... </section> marker lines, and
// markdown headers of level 1 or 2. Headers that look like code-sample
// annotations (inline filenames, imperative setup steps) are folded
// into the open section instead of starting a new one; the predicate
// deciding that is pluggable. Content before the first recognized
// boundary becomes a synthetic overview section.
//
// Planning groups sections into batches sized to stay under a
// provider's reliable output-length limit and allocates the requested
// task count proportionally by line count; the per-group suggestions
// always sum to exactly the requested total.
package prd
