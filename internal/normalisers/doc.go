// Package normalisers turns uploaded files into plain document text.
// Each normaliser handles a set of file extensions and MIME types; the
// Registry dispatches an upload to the matching one before chunking.
//
// Normalisers are registered with the Registry at startup.
package normalisers
