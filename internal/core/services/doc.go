// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Retrieval (fusion, keyword scoring, budgeting), ingest and the model
// download lifecycle live here. Services are pure Go with no CGO; inference,
// storage and network access sit behind driven ports.
package services
