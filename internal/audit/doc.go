// Package audit records every fired action with its expected and measured
// timing.
//
// Drivers:
//   - "file": JSON Lines, one record per line (default)
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
//   - "none": discard
package audit
