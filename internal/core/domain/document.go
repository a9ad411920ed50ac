package domain

// LoadedDocument is the text and metadata a loader extracted from one file.
// Loaders return a fresh value; callers copy Metadata before changing it.
type LoadedDocument struct {
	// Text is the extracted content.
	Text string

	// Metadata contains arbitrary key-value pairs such as filename, type and title.
	Metadata map[string]any
}

// CloneMetadata returns a shallow copy of the document metadata.
// The result is never nil.
func (d *LoadedDocument) CloneMetadata() map[string]any {
	dst := make(map[string]any, len(d.Metadata)+2)
	for k, v := range d.Metadata {
		dst[k] = v
	}
	return dst
}
