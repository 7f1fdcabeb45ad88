// Package http serves the dashboard API over chi.
//
// Handlers stay thin: they decode the query string into the api structs,
// map it onto a domain.Filter and hand it to the dataset service. Successful
// responses use the {"status":"success","data":...} envelope; every failure
// goes through the errors package and is written as application/problem+json.
//
// # Routes
//
//	GET  /api/version
//	GET  /api/datasets
//	GET  /api/datasets/{dataset}/dimensions?year=
//	GET  /api/datasets/{dataset}/summary?year=&period=&semester=&entity=&product=
//	GET  /api/datasets/{dataset}/records?limit=&offset=
//	GET  /api/datasets/{dataset}/groups?by=&measures=&sort=
//	GET  /api/datasets/{dataset}/top?measure=
//	GET  /api/datasets/{dataset}/shares?by=&measure=
//	GET  /api/datasets/{dataset}/export.{csv|xlsx}
//	POST /api/datasets/{dataset}/refresh
//	GET  /healthz, /healthz/ready, /healthz/live
//	GET  /metrics
//	GET  /ws
//
// Every dataset endpoint accepts the filter parameters listed for summary.
package http
