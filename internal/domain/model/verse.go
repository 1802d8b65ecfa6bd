package model

// Book is one exportable book within a project unit.
type Book struct {
	ID   int
	Code string // canonical short code, e.g. "MAT"
	Name string
}

// VerseRow is a single verse as stored, the unit the converter consumes.
type VerseRow struct {
	BookID  int
	Chapter int
	Verse   int
	Text    string
}
