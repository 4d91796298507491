// Package ingest acquires report text from web pages, PDF files, and PDF
// URLs, and normalizes it for chunking. Input type is detected from the
// input string; callers get back a Document with cleaned text and source
// metadata.
package ingest
