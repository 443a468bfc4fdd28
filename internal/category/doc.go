// Package category provides a rooted hierarchy of categories carrying
// inheritable named properties.
//
// A Categorization owns exactly one root and the two linearization functions
// used to order ancestors (bottom-up) and descendants (top-down). Property
// lookups that miss locally walk the bottom-up linearization and return the
// first value found, so a property set on a category is inherited by every
// descendant that does not define it itself.
//
// The package is single-threaded: property maps and linearization caches are
// plain unsynchronized state. Callers that share a categorization between
// goroutines must serialize access themselves.
package category
