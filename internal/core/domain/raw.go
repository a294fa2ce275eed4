package domain

// RawDocument represents the bytes of an uploaded file before normalisation.
type RawDocument struct {
	// Filename is the uploaded file name, used to pick a normaliser.
	Filename string

	// MIMEType is the content type (e.g., "text/markdown"), optional.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
