// Package driving holds the use-case interfaces the CLI, the MCP server and
// the directory watcher call into: ingesting documents, retrieving context,
// managing local models and editing settings.
package driving
