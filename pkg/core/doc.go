// Package core defines the shared language of the leaproute system.
//
// This package contains:
//   - Column element types (ColumnType)
//   - Evaluation status (Phase, Status)
//   - The failure taxonomy surfaced by reducers, loaders and plotters
//   - Persisted records and the Store interface
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
