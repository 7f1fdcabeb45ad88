// Package services implements the query layer between the HTTP and CLI
// front ends and the dataprocessing package.
//
// DatasetService resolves a dataset name to its file and layout, obtains the
// current table from the loader (cached by content fingerprint) and runs the
// filter and aggregate operations dashboards ask for. When a changed source
// no longer loads, the previous table keeps being served and the failure is
// published to websocket clients as a dataset:error event.
//
//	svc := services.NewDatasetService(cfg, loader, logger, services.WithPublisher(hub))
//	summary, err := svc.Summary(ctx, "realisasi", domain.Filter{}.WithYear(2025))
//
// HealthService reports liveness and readiness; a dataset that has never
// loaded makes the process not ready.
package services
