package kmain

import "strings"

// ParseCmdLine returns the key-value pairs of a boot command line. Tokens are
// separated by whitespace and have the form key=value; a token without a
// value is stored as a flag that maps to itself. Malformed tokens are
// ignored.
func ParseCmdLine(cmdLine string) map[string]string {
	kv := make(map[string]string)

	for _, pair := range strings.Fields(cmdLine) {
		parts := strings.Split(pair, "=")
		switch len(parts) {
		case 2: // foo=bar
			if parts[0] != "" {
				kv[parts[0]] = parts[1]
			}
		case 1: // nofoo
			kv[parts[0]] = parts[0]
		}
	}

	return kv
}
