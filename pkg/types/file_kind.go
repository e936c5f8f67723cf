package types

// FileKind is the coarse content family of a file, derived from its extension.
type FileKind int

const (
	// KindUnsupported files are never rename candidates
	KindUnsupported FileKind = iota
	KindImage
	KindVideo
	KindDocument
	KindSpreadsheet
)

// IsVisual reports whether content is sent to the model as a picture.
func (k FileKind) IsVisual() bool {
	return k == KindImage || k == KindVideo
}

func (k FileKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	case KindSpreadsheet:
		return "spreadsheet"
	default:
		return "unsupported"
	}
}
