// Package feed decodes System-of-Record extracts into generic attribute
// mappings.
//
// XML extracts are decoded into the same shape the original loader saw:
// the root element is not wrapped, tag names are lower-cased with namespace
// prefixes stripped, attributes live under "$", and a child tag that occurs
// once is a scalar while one that repeats is a list. That one-or-many
// ambiguity is left in place on purpose; package normalize resolves it.
//
// The kind of an extract is decided by what sits under the root: student,
// department or course records. JSON feeds carry already-flat records and
// name their own source and natural id field.
package feed
