package binstruct

// StructError represents a definition or codec error
type StructError struct {
	Message string
}

func (e *StructError) Error() string {
	return e.Message
}

// Errors
var (
	ErrUnrecognizedFormat   = &StructError{"unrecognized format"}
	ErrUnsupportedFormat    = &StructError{"unsupported format"}
	ErrUnsupportedAttribute = &StructError{"unsupported type attribute for endian modifier"}
	ErrInvalidModifier      = &StructError{"invalid modifier"}
	ErrInvalidCount         = &StructError{"unsupported count"}
	ErrMalformedDefinition  = &StructError{"definition must be a list of format/name pairs"}
	ErrNullInput            = &StructError{"data cannot be nil"}
	ErrMissingField         = &StructError{"member not found"}
	ErrInvalidValue         = &StructError{"invalid value for format"}
	ErrCursorUnderflow      = &StructError{"X outside of buffer"}
)
