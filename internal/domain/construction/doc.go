// Package construction holds the records the dashboard reads: organizations, their sites,
// the vendors and materials they buy from, vehicles, purchases, expenses, daily work
// progress and tenders. Each type mirrors one table column-for-column; there is no behaviour
// beyond identity and organization scoping.
package construction
