package domain

// Document is an uploaded file reduced to its plain text.
type Document struct {
	Filename string
	Text     string
}
