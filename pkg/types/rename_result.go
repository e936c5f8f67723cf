package types

// RenameResult holds the outcome of a rename attempt for a single file
type RenameResult struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path"`
	Renamed         bool   `json:"renamed"`
	Error           error  `json:"error,omitempty"`
}
