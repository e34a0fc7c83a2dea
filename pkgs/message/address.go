package message

import "strings"

// ParseAddress extracts a display-name/address pair from free-form header
// text. The "Name <addr>" form is matched first; when no angle-bracket pair
// is present the whole string serves as both name and address.
func ParseAddress(raw string) Sender {
	raw = strings.TrimSpace(raw)

	openIdx := strings.LastIndex(raw, "<")
	closeIdx := strings.LastIndex(raw, ">")
	if openIdx >= 0 && closeIdx > openIdx {
		name := strings.TrimSpace(raw[:openIdx])
		name = strings.Trim(name, `"`)
		addr := strings.TrimSpace(raw[openIdx+1 : closeIdx])
		if name == "" {
			name = addr
		}
		return Sender{DisplayName: name, Address: addr}
	}

	return Sender{DisplayName: raw, Address: raw}
}
