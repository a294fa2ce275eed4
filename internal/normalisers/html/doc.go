// Package html provides a Normaliser for HTML documents.
// It extracts readable text, dropping scripts, styles and markup, decoding
// entities and keeping block elements as paragraph boundaries.
package html
