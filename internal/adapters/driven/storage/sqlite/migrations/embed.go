// Package migrations holds the schema for documents, chunks and the
// keyword index, applied in filename order.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
