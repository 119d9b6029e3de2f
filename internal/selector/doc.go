// Package selector models the query side of context-aware pages.
//
// An Info is a domain concept such as "host" or "service" that rows of the
// row source describe. A Selector belongs to one info, consumes a fixed set
// of URL variables and, once active, contributes a query fragment and an
// optional row post-filter. A Context bundles the captured values of active
// selectors for a page together with the infos the page is about.
//
// Infos must be registered before the selectors that reference them.
package selector
