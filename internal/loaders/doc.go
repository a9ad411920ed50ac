// Package loaders selects the text extractor for each file extension.
//
// Built-in loaders cover text, markdown, HTML, email and the common office
// and ebook formats at priority 0. Optional plugins backed by external
// binaries (poppler's pdftotext, tesseract) are discovered once at startup
// and take over their extensions with a higher priority when available.
// Explicit per-extension overrides beat priority.
package loaders
