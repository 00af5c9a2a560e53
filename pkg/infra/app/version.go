package app

import "github.com/kart-io/version"

// GetVersion returns the git version stamped into the binary.
func GetVersion() string {
	return version.Get().GitVersion
}

// ServiceFields returns the initial log fields identifying a binary.
func ServiceFields(name string) []any {
	return []any{"service.name", name, "service.version", GetVersion()}
}
