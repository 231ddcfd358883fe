// Package database owns the root Bun client and the ambient transaction
// mechanism built around it: context-carried transaction handles, per-call
// handle resolution, the flattening unit-of-work runner, plus connection
// management, model registration, startup migrations, health checks, and
// query hooks.
package database
