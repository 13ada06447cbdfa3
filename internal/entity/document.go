package entity

// Document is one XML input together with its display name.
type Document struct {
	Name string
	Data []byte
	// Err is set when the source could not be read; Data is then empty.
	Err error
}
