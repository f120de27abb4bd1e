package registry

import (
	"fmt"
	"strings"

	"github.com/DeusData/schemamemo/internal/schemawrap"
)

// HelperScript returns the JavaScript module that installs the registration
// slot matching opts. Bare and global-member references both resolve through
// the global object. The default build function memoizes per key; callers may
// pass their own to define<Name>.
func HelperScript(opts schemawrap.Options) string {
	d := schemawrap.DefaultOptions()
	name := opts.Registration
	if name == "" {
		name = d.Registration
	}
	global := opts.GlobalObject
	if global == "" {
		global = d.GlobalObject
	}

	var b strings.Builder
	fmt.Fprintf(&b, "// Installs %s.%s, called by every wrapped schema call site.\n", global, name)
	b.WriteString("const cache = new Map();\n\n")
	b.WriteString("export const memoize = (key, build) => {\n")
	b.WriteString("  if (!cache.has(key)) {\n")
	b.WriteString("    cache.set(key, build());\n")
	b.WriteString("  }\n")
	b.WriteString("  return cache.get(key);\n")
	b.WriteString("};\n\n")
	fmt.Fprintf(&b, "export const define%s = (build = memoize) => {\n", exportName(name))
	fmt.Fprintf(&b, "  %s.%s = build;\n", global, name)
	b.WriteString("};\n")
	return b.String()
}

// exportName turns "_buildZodSchema" into "BuildZodSchema".
func exportName(name string) string {
	trimmed := strings.TrimLeft(name, "_$")
	if trimmed == "" {
		return "Registration"
	}
	return strings.ToUpper(trimmed[:1]) + trimmed[1:]
}
