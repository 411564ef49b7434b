// Package pricebook keeps a daily price history for a universe of equities and
// mutual funds. It is local-first: every table lives in a plain CSV file that stays
// human-readable and version-controllable.
//
// The core functionalities include:
//   - Symbol Map: linking stable instrument identifiers (ISIN) to the quote symbol
//     each provider understands, and to the instrument kind.
//   - Reconciliation: for each instrument, walking the ordered list of quote tiers
//     for its kind (bulk, individual, NAV table) until one returns a price.
//   - Suppression: remembering instruments that could not be priced so that they
//     are not retried on every run.
//   - Persistence: merging the run's records into the Price History and the
//     Missing-Quote Log with last-write-wins semantics on (date, identifier).
//
// This package serves as the foundational logic for the `pbk` command-line
// tool. Quote adapters live in their own packages (yahoo, amfi).
package pricebook
