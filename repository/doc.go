// Package repository provides a generic, transaction-aware repository built
// on Bun. Repositories are stateless: each operation resolves its handle
// from the calling context, so calls made inside a unit of work
// automatically join the active transaction.
package repository
