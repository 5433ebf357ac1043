package sandbox

import (
	"regexp"
	"strings"
)

// AllowList is the known-safe set of installable dependency names (spec
// §4.5 step 1: "restricted to a known-safe allow-list"). This is the
// practical automation vocabulary: file/data manipulation, HTTP, and
// archive libraries a short desktop script plausibly needs.
var AllowList = map[string]bool{
	"requests":       true,
	"pandas":         true,
	"numpy":          true,
	"pillow":         true,
	"openpyxl":       true,
	"python-docx":    true,
	"pypdf":          true,
	"beautifulsoup4": true,
	"pyyaml":         true,
	"send2trash":     true,
	"watchdog":       true,
	"tqdm":           true,
}

// requiresHeader matches the script's declared-dependency convention:
// a line of the form "# requires: pkgA, pkgB" (spec §4.5 step 1).
var requiresHeader = regexp.MustCompile(`(?m)^\s*#\s*requires:\s*(.+)$`)

// importLine matches a bare Python "import X" or "from X import ..."
// statement, used as the inferred fallback when no header is present.
var importLine = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// stdlibModules are Python standard-library module names excluded from
// the inferred-import fallback — they need no install step.
var stdlibModules = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "shutil": true,
	"pathlib": true, "subprocess": true, "time": true, "datetime": true,
	"glob": true, "csv": true, "zipfile": true, "tempfile": true,
	"collections": true, "itertools": true, "logging": true, "argparse": true,
}

// ScanResult is the outcome of dependency discovery: every declared or
// inferred package name, partitioned by allow-list membership.
type ScanResult struct {
	Allowed  []string
	Rejected []string
}

// ScanDependencies implements spec §4.5 step 1: prefer the explicit
// "# requires:" header when present; otherwise infer from import
// statements, skipping standard-library modules.
func ScanDependencies(script string) ScanResult {
	var names []string
	if m := requiresHeader.FindStringSubmatch(script); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			name := strings.TrimSpace(part)
			if name != "" {
				names = append(names, name)
			}
		}
	} else {
		seen := make(map[string]bool)
		for _, m := range importLine.FindAllStringSubmatch(script, -1) {
			name := m[1]
			if stdlibModules[name] || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}

	result := ScanResult{}
	for _, name := range names {
		if AllowList[name] {
			result.Allowed = append(result.Allowed, name)
		} else {
			result.Rejected = append(result.Rejected, name)
		}
	}
	return result
}
