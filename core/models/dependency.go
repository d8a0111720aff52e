package models

// ImportOccurrence is one import directive found in a file's content.
type ImportOccurrence struct {
	Target  string // Path exactly as written: "./lib.nix", "/etc/nixos/hw.nix"
	Line    int    // 1-based line of the directive
	Column  int    // 1-based byte column of the directive
	Literal string // Whole directive text: `import "./lib.nix"`
	Start   int    // Byte offset of Literal in the containing file
	End     int    // Byte offset just past Literal
}
