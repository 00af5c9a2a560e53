package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all binaries.
	ServiceCommon = 0

	// ServiceChat is for the catalog chat service.
	ServiceChat = 30
)

// Category codes (BB)
const (
	CategorySuccess    = 0
	CategoryRequest    = 1
	CategoryAuth       = 2
	CategoryPermission = 3
	CategoryResource   = 4
	CategoryConflict   = 5
	CategoryRateLimit  = 6
	CategoryInternal   = 7
	CategoryDatabase   = 8
	CategoryCache      = 9
	CategoryNetwork    = 10
	CategoryTimeout    = 11
	CategoryConfig     = 12
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// IsServerError reports whether the code belongs to a 5xx category.
func IsServerError(code int) bool {
	_, category, _ := ParseCode(code)
	return category >= CategoryInternal && category <= CategoryConfig
}
