package graph

import (
	"testing"

	"github.com/davepan/kgraph/ner"
)

func TestMergeSubstringVariants(t *testing.T) {
	g := New(Config{})
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "c1")
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "c2")
	g.AddEntity("列车自动监控", ner.TypeSystem, "c3")

	merged := g.MergeSimilarEntities(0.8)
	if merged != 1 {
		t.Fatalf("merged = %d, want 1", merged)
	}
	if g.NumEntities() != 1 {
		t.Fatalf("NumEntities = %d, want 1", g.NumEntities())
	}

	e := g.Entity("列车自动监控系统")
	if e == nil {
		t.Fatal("canonical entity missing, higher-frequency name must survive")
	}
	if e.Frequency != 3 {
		t.Errorf("frequency = %d, want 3 (summed)", e.Frequency)
	}
	if len(e.Contexts) != 3 {
		t.Errorf("contexts = %v, want union of 3", e.Contexts)
	}
}

func TestMergeRewritesRelations(t *testing.T) {
	g := New(Config{})
	g.AddEntity("区域控制器", ner.TypeSystem, "")
	g.AddEntity("区域控制器", ner.TypeSystem, "")
	g.AddRelation("区域控制", "用于", "移动授权", "")

	g.MergeSimilarEntities(0.8)

	rels := g.Relations()
	if len(rels) != 1 {
		t.Fatalf("relations = %d, want 1", len(rels))
	}
	if rels[0].Subject != "区域控制器" {
		t.Errorf("subject = %q, relation must point at the merged name", rels[0].Subject)
	}
	if g.Entity("区域控制") != nil {
		t.Error("variant entity still present after merge")
	}
}

func TestMergeSkipsShortNames(t *testing.T) {
	g := New(Config{})
	g.AddEntity("ZC", ner.TypeTech, "")
	g.AddEntity("ZC系统", ner.TypeSystem, "")

	if merged := g.MergeSimilarEntities(0.8); merged != 0 {
		t.Errorf("merged = %d, names under 3 runes must not merge", merged)
	}
	if g.NumEntities() != 2 {
		t.Errorf("NumEntities = %d, want 2", g.NumEntities())
	}
}

func TestMergeDifferentPrefixesUntouched(t *testing.T) {
	g := New(Config{})
	g.AddEntity("车载控制器", ner.TypeSystem, "")
	g.AddEntity("区域控制器", ner.TypeSystem, "")

	if merged := g.MergeSimilarEntities(0.8); merged != 0 {
		t.Errorf("merged = %d, want 0 for distinct prefixes", merged)
	}
}

func TestMergeNonContainedSamePrefix(t *testing.T) {
	// Same 3-rune prefix but neither contains the other.
	g := New(Config{})
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动防护系统", ner.TypeSystem, "")

	if merged := g.MergeSimilarEntities(0.8); merged != 0 {
		t.Errorf("merged = %d, want 0 without containment", merged)
	}
	if g.NumEntities() != 2 {
		t.Errorf("NumEntities = %d, want 2", g.NumEntities())
	}
}

func TestMergeLevenshteinStrategy(t *testing.T) {
	g := New(Config{MergeStrategy: MergeLevenshtein})
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动监视系统", ner.TypeSystem, "")

	if merged := g.MergeSimilarEntities(0.8); merged != 1 {
		t.Errorf("merged = %d, want 1 under edit-distance strategy", merged)
	}
	if e := g.Entity("列车自动监控系统"); e == nil || e.Frequency != 3 {
		t.Errorf("canonical = %+v, want frequency 3", e)
	}
}

func TestMergeIdempotent(t *testing.T) {
	g := New(Config{})
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动监控", ner.TypeSystem, "")
	g.AddEntity("列车自动", ner.TypeSystem, "")

	g.MergeSimilarEntities(0.8)
	first := g.NumEntities()

	if merged := g.MergeSimilarEntities(0.8); merged != 0 {
		t.Errorf("second pass merged = %d, want 0", merged)
	}
	if g.NumEntities() != first {
		t.Errorf("NumEntities changed on second pass: %d != %d", g.NumEntities(), first)
	}
}

func TestMergeDedupesCollapsedRelations(t *testing.T) {
	// Two triples that become identical once their objects merge.
	g := New(Config{})
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddEntity("列车自动监控系统", ner.TypeSystem, "")
	g.AddRelation("CBTC", "包括", "列车自动监控系统", "")
	g.AddRelation("CBTC", "包括", "列车自动监控", "")

	g.MergeSimilarEntities(0.8)

	for _, r := range g.Relations() {
		g.AddRelation(r.Subject, r.Relation, r.Object, r.Context)
	}
	if g.NumRelations() != len(g.Relations()) {
		t.Error("relation count drifted after re-adding merged triples")
	}
	// Re-adding the canonical triple must still be seen as a duplicate.
	before := g.NumRelations()
	g.AddRelation("CBTC", "包括", "列车自动监控系统", "")
	if g.NumRelations() != before {
		t.Errorf("NumRelations = %d, want %d, merged triple not registered as seen", g.NumRelations(), before)
	}
}
