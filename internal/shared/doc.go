// Package shared holds helpers used by more than one package that belong to
// no particular layer.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - spreadsheet fixture builders that write legacy and v2 workbooks into
//     t.TempDir()
//
// Example usage:
//
//	func TestLoad(t *testing.T) {
//	    path := testutil.LegacyWorkbook(t,
//	        []any{1, "PT A", "Nikel", 10, 100, 20, 2025},
//	    )
//	    logger, logs := testutil.NewTestLogger(t)
//	    ...
//	}
//
// Nothing in this package should carry business logic.
package shared
