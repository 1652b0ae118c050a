package shader

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for uniform bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name     string
	typeName string
	location int
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
