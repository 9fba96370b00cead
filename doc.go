// Package slipstream is a hierarchical page workspace with inherited access
// control and live multi-client synchronization.
//
// Pages form trees: container pages hold ordered children, content pages hold
// a body. Attaching a child to a content page promotes it to a container in
// place, carrying over its title, body, sharing grants and publication state.
// Workspaces group root pages for a set of members.
//
// # Features
//
//   - Inherited access control: a page is readable or writable if the
//     principal owns it, holds a direct grant, or inherits one from any
//     ancestor; published pages are readable by anyone, including anonymous
//     visitors
//   - Live synchronization: every page edit is fanned out as a snapshot frame
//     to WebSocket subscribers of that page's topic
//   - Co-presence: clients joining a page announce themselves and receive the
//     member list and cursor positions of everyone else on the page
//   - Dashboard assembly: a principal's accessible pages are grouped by
//     workspace, built into title-sorted trees, with shared-with-me pages
//     listed separately
//   - Pluggable persistence: in-memory (development and tests), PostgreSQL
//     via GORM, or SurrealDB via the official Go SDK
//
// # Architecture Overview
//
//   - [github.com/slipstream-app/slipstream/pkg/models] holds the domain
//     types: the tagged Page variant, Workspace, access levels and forest
//     building
//   - [github.com/slipstream-app/slipstream/pkg/store] abstracts persistence
//     behind PageStore and WorkspaceStore, with one package per backend
//   - [github.com/slipstream-app/slipstream/pkg/access] resolves permissions
//     by walking the ancestor chain
//   - [github.com/slipstream-app/slipstream/pkg/notify] implements the
//     per-page observer registry that turns mutations into topic broadcasts
//   - [github.com/slipstream-app/slipstream/pkg/presence] tracks who is on
//     which page, keyed by connection session
//   - [github.com/slipstream-app/slipstream/pkg/pages] and
//     [github.com/slipstream-app/slipstream/pkg/workspace] orchestrate
//     mutations, queries and the dashboard
//   - [github.com/slipstream-app/slipstream/pkg/slipstream] wires it all into
//     an HTTP API and a WebSocket hub
//
// # Getting Started
//
// Run against the in-memory store:
//
//	slipstream run
//
// Run against PostgreSQL after migrating the schema:
//
//	slipstream -store postgres migrate
//	slipstream -store postgres run
//
// Configuration comes from flags with environment fallbacks; see
// [github.com/slipstream-app/slipstream/pkg/slipstream.Parse].
package slipstream
