// Package database stores the history of fact checks.
//
// Every finished check is saved as a row holding the full report as JSON
// plus the columns needed to list and filter history without decoding
// it: input kind, label, verdict, timestamp and the input fingerprint
// that the result cache looks up.
//
// Two stores implement the Store interface:
//   - CheckDB keeps history in a SQLite file (modernc.org/sqlite, CGO-free)
//     under the XDG data directory. This is the default.
//   - PostgresStore (github.com/lib/pq) is selected by DATABASE_URL for
//     deployments where several servers share one history.
//
// Both share the same schema and queries; only placeholders and the
// timestamp column type differ.
package database
