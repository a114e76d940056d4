// Package integration contains the catalog synchronization bounded context.
//
// Key concepts:
//   - CatalogProvider: port for pulling product and variation pages from the external catalog
//   - ProviderError: the single failure shape of the provider, flagged retriable or not
//   - SyncJob: finite-state progress model of one synchronization run
//
// Adapters for the provider live in the infrastructure layer.
package integration
