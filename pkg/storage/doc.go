// Package storage holds what the response store backends share: sentinel
// errors, tenant scoping through the context and cursor pagination.
//
// The backends live in storage/memory and storage/postgres and implement
// transport.ResponseStore.
package storage
