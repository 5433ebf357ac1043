package sandbox

import "testing"

func TestScanDependencies_PrefersRequiresHeader(t *testing.T) {
	script := "# requires: requests, numpy\nimport os\nprint('hi')\n"
	got := ScanDependencies(script)
	if len(got.Allowed) != 2 || got.Allowed[0] != "requests" || got.Allowed[1] != "numpy" {
		t.Fatalf("expected [requests numpy] from header, got %v", got.Allowed)
	}
	if len(got.Rejected) != 0 {
		t.Fatalf("expected no rejections, got %v", got.Rejected)
	}
}

func TestScanDependencies_InfersFromImportsWhenHeaderAbsent(t *testing.T) {
	script := "import os\nimport requests\nfrom pandas import DataFrame\n"
	got := ScanDependencies(script)
	if len(got.Allowed) != 2 {
		t.Fatalf("expected requests and pandas inferred, got %v", got.Allowed)
	}
}

func TestScanDependencies_RejectsNamesOutsideAllowList(t *testing.T) {
	script := "# requires: requests, totally-not-a-real-package\n"
	got := ScanDependencies(script)
	if len(got.Rejected) != 1 || got.Rejected[0] != "totally-not-a-real-package" {
		t.Fatalf("expected one rejection, got %v", got.Rejected)
	}
	if len(got.Allowed) != 1 || got.Allowed[0] != "requests" {
		t.Fatalf("expected requests allowed, got %v", got.Allowed)
	}
}

func TestScanDependencies_SkipsStandardLibraryModules(t *testing.T) {
	script := "import os\nimport sys\nimport json\n"
	got := ScanDependencies(script)
	if len(got.Allowed) != 0 || len(got.Rejected) != 0 {
		t.Fatalf("expected no dependencies from pure stdlib imports, got allowed=%v rejected=%v", got.Allowed, got.Rejected)
	}
}
