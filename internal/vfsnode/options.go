package vfsnode

import "strings"

// ParseMountOptions parses the comma-separated key=value mount-option
// grammar. Empty tokens are silently dropped. The caller (Mount) consumes
// the recognized "ro" key itself; everything else is forwarded to the
// driver untouched.
func ParseMountOptions(options string) []MountOption {
	if options == "" {
		return nil
	}

	var out []MountOption
	for _, tok := range strings.Split(options, ",") {
		if tok == "" {
			continue
		}
		name, value, hasValue := strings.Cut(tok, "=")
		out = append(out, MountOption{Name: name, Value: value, HasValue: hasValue})
	}
	return out
}

// extractReadOnly consumes the "ro" key (if present) from opts, returning
// the remaining options to forward to the driver and whether read-only
// was requested.
func extractReadOnly(opts []MountOption) (remaining []MountOption, readOnly bool) {
	for _, o := range opts {
		if o.Name == "ro" {
			readOnly = true
			continue
		}
		remaining = append(remaining, o)
	}
	return remaining, readOnly
}
