// Package normalize turns decoded feed records into one canonical entity per
// natural id.
//
// Feed data is ambiguous in two ways. A sub-structure that occurs once decodes
// as a scalar, and as a list when it occurs more than once; normalizers coerce
// such fields to lists so cardinality never changes a fingerprint. And the
// same person can appear in several containers (an employee in several
// departments, an instructor in several course sections); normalizers merge
// every occurrence into one entity with an explicit rule per kind.
//
// Normalizers hold no state between runs. Each call returns a fresh Result.
package normalize
