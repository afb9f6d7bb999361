// Package platform is a data movement and reconciliation engine built
// around three storage tiers: local data files, a DuckDB analytical
// store, and Azure Blob Storage.
//
// The platform performs three operations:
//
// 1. Ingestion: CSV, Parquet and JSON files are materialized into
// DuckDB tables. Each materialization is a full replace, so re-running
// an ingestion is idempotent.
//
// 2. Extraction: configured API endpoints are fetched over HTTP and
// persisted as JSON artifacts with extraction metadata.
//
// 3. Synchronization: the local tree is reconciled against Azure
// containers in either direction, with a drift report comparing both
// sides.
//
// # Quick Start
//
// Run the pipeline with the bundled CLI:
//
//	vibe extract                 # pull configured API endpoints
//	vibe ingest                  # materialize data files into DuckDB
//	vibe sync status             # report local vs Azure drift
//	vibe sync upload --logs      # push run logs to Azure
//	vibe export                  # write dashboard Parquet files
//
// # Key Packages
//
//	pkg/config      - Source catalog loading and validation
//	pkg/ingest      - File materialization into the analytical store
//	pkg/extract     - API extraction to JSON artifacts
//	pkg/sync        - Local/Azure reconciliation and transfers
//	pkg/objectstore - Object storage capability surface
//	pkg/export      - Dashboard Parquet exports
//	pkg/pool        - Bounded worker pool with fail-soft accounting
//	pkg/errors      - Structured error handling
//	pkg/logger      - Structured logging
//
// # Configuration
//
// Sources are declared in a single YAML catalog (config/sources.yml)
// with ${VAR_NAME} environment substitution. Secrets never live in the
// catalog; auth and storage credentials are resolved from the
// environment at run time.
//
// # Failure Model
//
// Batch operations are fail-soft: each file, endpoint or object is an
// independent item, and one item's failure never stops its siblings.
// Commands report aggregate succeeded/failed/skipped counts. Only
// configuration and credential errors abort a run up front.
package platform
