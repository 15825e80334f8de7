package shell

import (
	"os"
	"regexp"
	"strings"
)

var reEnv = regexp.MustCompile(`\${([^}{]+)}`)

// ReplaceEnvVars substitutes ${KEY} and ${KEY:default}. Unknown keys without
// a default are left as is.
func ReplaceEnvVars(text string) string {
	return reEnv.ReplaceAllStringFunc(text, func(match string) string {
		key := match[2 : len(match)-1]

		key, def, dok := strings.Cut(key, ":")

		if value, vok := os.LookupEnv(key); vok {
			return value
		}

		if dok {
			return def
		}

		return match
	})
}
