package picker

import (
	"os"
	"path/filepath"
	"testing"

	"sshpick/pkg/sshconfig"
)

// registryFrom parses an inline config and resolves it into a registry.
func registryFrom(t *testing.T, content string) *sshconfig.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	src, err := sshconfig.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sshconfig.Resolve([]*sshconfig.ConfigSource{src}, nil)
}

func aliases(reg *sshconfig.Registry, matches []Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, reg.At(m.Index).Alias)
	}
	return out
}

func TestRankSubsequenceFiltering(t *testing.T) {
	reg := registryFrom(t, "Host web-1\nHost database\nHost webhook\n")

	got := aliases(reg, Rank(reg, "web", false))
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	// Contiguous match in the shorter name must outrank webhook.
	if got[0] != "web-1" || got[1] != "webhook" {
		t.Fatalf("expected [web-1 webhook], got %v", got)
	}
	for _, a := range got {
		if a == "database" {
			t.Fatalf("database has no 'w' and must not match")
		}
	}
}

func TestRankMatchesHostnameAndUser(t *testing.T) {
	reg := registryFrom(t, "Host edge\n HostName 10.1.2.3\n User deploy\nHost other\n")

	got := aliases(reg, Rank(reg, "deploy", false))
	if len(got) != 1 || got[0] != "edge" {
		t.Fatalf("expected user field to be searchable, got %v", got)
	}

	got = aliases(reg, Rank(reg, "10.1", false))
	if len(got) != 1 || got[0] != "edge" {
		t.Fatalf("expected hostname field to be searchable, got %v", got)
	}
}

func TestRankMultipleTokensAnd(t *testing.T) {
	reg := registryFrom(t, "Host web-prod\n User deploy\nHost web-dev\n User tester\n")

	got := aliases(reg, Rank(reg, "web deploy", false))
	if len(got) != 1 || got[0] != "web-prod" {
		t.Fatalf("expected AND semantics across tokens, got %v", got)
	}
}

func TestRankEmptyQuerySortToggle(t *testing.T) {
	reg := registryFrom(t, "Host zeta\nHost alpha\nHost mike\n")

	got := aliases(reg, Rank(reg, "", false))
	want := []string{"zeta", "alpha", "mike"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected registry order %v, got %v", want, got)
		}
	}

	got = aliases(reg, Rank(reg, "", true))
	want = []string{"alpha", "mike", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected alphabetical order %v, got %v", want, got)
		}
	}
}

func TestRankIsCaseInsensitive(t *testing.T) {
	reg := registryFrom(t, "Host Web-1\n")

	if got := Rank(reg, "WEB", false); len(got) != 1 {
		t.Fatalf("expected case-insensitive match, got %v", got)
	}
}

func TestRankTiesKeepRegistryOrder(t *testing.T) {
	reg := registryFrom(t, "Host node-a\nHost node-b\n")

	got := aliases(reg, Rank(reg, "node", false))
	if len(got) != 2 || got[0] != "node-a" || got[1] != "node-b" {
		t.Fatalf("expected stable registry order for ties, got %v", got)
	}
}

func TestFuzzyScoreRejectsNonSubsequence(t *testing.T) {
	if _, ok := fuzzyScore("xyz", "web-1"); ok {
		t.Fatalf("xyz is not a subsequence of web-1")
	}
	if _, ok := fuzzyScore("bw", "web"); ok {
		t.Fatalf("subsequence order must be preserved")
	}
}
