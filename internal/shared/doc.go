// Package shared holds code used across optexec's packages that belongs to no
// single layer. Today that is the testutil subpackage.
//
// # Test Utilities
//
// testutil provides:
//
//   - a slog handler that captures records so tests can assert on logging
//   - execution fixtures: market snapshots, portfolios and a deterministic
//     MarketDataProvider that counts its calls
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    provider := testutil.NewStubProvider(testutil.NeutralConditions())
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "order executed")
//	}
//
// Nothing here may be imported from non-test code.
package shared
