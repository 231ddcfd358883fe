// Package ambient gives Bun-based data access an implicit-transaction
// programming model. Run executes an operation as one unit of work;
// repositories, services, and the ad-hoc query facade resolve the active
// transaction from the context on every call, so nothing threads a bun.Tx
// through its signatures. Nested Run calls flatten into the outermost
// transaction.
package ambient
