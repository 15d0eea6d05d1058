package models

import "encoding/base64"

// Document is one source document after it has been fetched to local storage.
type Document struct {
	SourceURL string
	LocalPath string
	Label     string
}

// FetchResult pairs a document with the outcome of its fetch. Err is nil on
// success. Results are always reported in the original input order.
type FetchResult struct {
	Document Document
	Err      error
}

// PageImage is a single rasterized document page, JPEG-encoded and bounded so
// neither dimension exceeds the configured cap.
type PageImage struct {
	Label  string // owning document label
	Page   int    // 1-based page number
	Width  int
	Height int
	Data   []byte // JPEG bytes
}

// DataURL returns the page as a base64 data URL suitable for inline transport
// in a multimodal model request.
func (p PageImage) DataURL() string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// Extraction is the text one worker call produced for one document.
type Extraction struct {
	Label string
	Text  string
}

// Synthesis is the parsed output of the final model call: the narrative answer
// and, when the model emitted a well-formed fenced block, the chart code.
type Synthesis struct {
	Narrative string
	Code      string
}
