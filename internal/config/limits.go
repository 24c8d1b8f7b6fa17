package config

const (
	// MaxNodeNameLength is the maximum length, in runes, for file and folder names.
	MaxNodeNameLength = 255

	// MaxModelNameLength is the maximum length for model config and template names.
	MaxModelNameLength = 100

	// MaxRequestBodyBytes caps ordinary JSON request bodies.
	MaxRequestBodyBytes = 10 << 20

	// MaxBackupBytes caps an uploaded backup document.
	MaxBackupBytes = 64 << 20

	// MaxImportBytes caps one uploaded import file, and each file inside a zip.
	MaxImportBytes = 100 << 20

	// WordsPerMinute is the reading speed used for reading-time estimates.
	WordsPerMinute = 200
)
