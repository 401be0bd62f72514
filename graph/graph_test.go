package graph

import (
	"path/filepath"
	"testing"

	"github.com/davepan/kgraph/ner"
)

func TestAddEntity(t *testing.T) {
	g := New(Config{})
	g.AddEntity("CBTC", ner.TypeTech, "CBTC包括ZC")

	e := g.Entity("CBTC")
	if e == nil {
		t.Fatal("entity CBTC not found")
	}
	if e.Type != ner.TypeTech {
		t.Errorf("type = %q, want TECH", e.Type)
	}
	if e.Frequency != 1 {
		t.Errorf("frequency = %d, want 1", e.Frequency)
	}
	if len(e.Contexts) != 1 || e.Contexts[0] != "CBTC包括ZC" {
		t.Errorf("contexts = %v", e.Contexts)
	}
}

func TestAddEntityRepeat(t *testing.T) {
	g := New(Config{})
	g.AddEntity("ZC", ner.TypeTech, "ctx1")
	g.AddEntity("ZC", ner.TypeUnknown, "ctx2")
	g.AddEntity("ZC", ner.TypeUnknown, "ctx1") // duplicate context

	e := g.Entity("ZC")
	if e.Frequency != 3 {
		t.Errorf("frequency = %d, want 3", e.Frequency)
	}
	if len(e.Contexts) != 2 {
		t.Errorf("contexts = %v, want 2 distinct", e.Contexts)
	}
	if e.Type != ner.TypeTech {
		t.Errorf("type = %q, first-seen type must win", e.Type)
	}
}

func TestAddEntityNormalization(t *testing.T) {
	g := New(Config{})
	g.AddEntity("该系统设备", ner.TypeSystem, "")
	g.AddEntity("系统设备", ner.TypeUnknown, "")

	if g.NumEntities() != 1 {
		t.Fatalf("NumEntities = %d, want 1 after prefix stripping", g.NumEntities())
	}
	if e := g.Entity("系统设备"); e == nil || e.Frequency != 2 {
		t.Errorf("entity = %+v, want frequency 2", e)
	}
}

func TestAddEntityWhitespaceCollapse(t *testing.T) {
	g := New(Config{})
	g.AddEntity("zone   controller", ner.TypeSystem, "")
	if g.Entity("zone controller") == nil {
		t.Error("whitespace not collapsed in entity name")
	}
}

func TestAddEntityEmpty(t *testing.T) {
	g := New(Config{})
	g.AddEntity("", ner.TypeUnknown, "")
	g.AddEntity("   ", ner.TypeUnknown, "")
	if g.NumEntities() != 0 {
		t.Errorf("NumEntities = %d, want 0", g.NumEntities())
	}
}

func TestContextCap(t *testing.T) {
	g := New(Config{MaxContexts: 3})
	for i := 0; i < 10; i++ {
		g.AddEntity("ZC", ner.TypeTech, string(rune('a'+i)))
	}
	if e := g.Entity("ZC"); len(e.Contexts) != 3 {
		t.Errorf("contexts = %v, want capped at 3", e.Contexts)
	}
}

func TestAddRelation(t *testing.T) {
	g := New(Config{})
	g.AddRelation("CBTC", "包括", "ZC", "CBTC包括ZC")

	if g.NumRelations() != 1 {
		t.Fatalf("NumRelations = %d, want 1", g.NumRelations())
	}
	if g.NumEntities() != 2 {
		t.Errorf("NumEntities = %d, want 2 (auto-created)", g.NumEntities())
	}

	stats := g.Statistics()
	if stats.NumRelations != 1 {
		t.Errorf("stats.NumRelations = %d, want 1", stats.NumRelations)
	}
	if stats.NumRelationTypes != 1 || stats.RelationTypes[0] != "包括" {
		t.Errorf("relation types = %v", stats.RelationTypes)
	}
}

func TestAddRelationIdempotent(t *testing.T) {
	g := New(Config{})
	g.AddRelation("CBTC", "包括", "ZC", "ctx")
	g.AddRelation("CBTC", "包括", "ZC", "ctx")

	if g.NumRelations() != 1 {
		t.Errorf("NumRelations = %d, want 1 after repeat add", g.NumRelations())
	}
}

func TestAddRelationSynonymDedup(t *testing.T) {
	// 包含 normalizes to 包括, so the second triple is a repeat.
	g := New(Config{})
	g.AddRelation("CBTC", "包括", "ZC", "")
	g.AddRelation("CBTC", "包含", "ZC", "")

	if g.NumRelations() != 1 {
		t.Errorf("NumRelations = %d, want 1 after synonym normalization", g.NumRelations())
	}
	if stats := g.Statistics(); stats.NumRelationTypes != 1 {
		t.Errorf("NumRelationTypes = %d, want 1", stats.NumRelationTypes)
	}
}

func TestAddRelationRejectsSelfLoop(t *testing.T) {
	g := New(Config{})
	g.AddRelation("CBTC", "包括", "CBTC", "")
	if g.NumRelations() != 0 {
		t.Errorf("NumRelations = %d, want 0 for self-loop", g.NumRelations())
	}

	// Self-loop after normalization too: 该CBTC normalizes to CBTC.
	g.AddRelation("该CBTC", "包括", "CBTC", "")
	if g.NumRelations() != 0 {
		t.Errorf("NumRelations = %d, want 0 for normalized self-loop", g.NumRelations())
	}
}

func TestAddRelationRejectsEmptyFields(t *testing.T) {
	g := New(Config{})
	g.AddRelation("", "包括", "ZC", "")
	g.AddRelation("CBTC", "", "ZC", "")
	g.AddRelation("CBTC", "包括", "", "")
	g.AddRelation("  ", "包括", "ZC", "")

	if g.NumRelations() != 0 {
		t.Errorf("NumRelations = %d, want 0", g.NumRelations())
	}
	if g.NumEntities() != 0 {
		t.Errorf("NumEntities = %d, rejected triples must not create entities", g.NumEntities())
	}
}

func TestStatisticsTopEntities(t *testing.T) {
	g := New(Config{TopEntities: 2})
	g.AddEntity("CBTC", ner.TypeTech, "")
	g.AddEntity("CBTC", ner.TypeTech, "")
	g.AddEntity("CBTC", ner.TypeTech, "")
	g.AddEntity("ZC", ner.TypeTech, "")
	g.AddEntity("ZC", ner.TypeTech, "")
	g.AddEntity("ATS", ner.TypeTech, "")

	top := g.Statistics().TopEntities
	if len(top) != 2 {
		t.Fatalf("got %d top entities, want 2", len(top))
	}
	if top[0].Name != "CBTC" || top[0].Frequency != 3 {
		t.Errorf("top[0] = %+v, want CBTC/3", top[0])
	}
	if top[1].Name != "ZC" {
		t.Errorf("top[1] = %+v, want ZC", top[1])
	}
}

func TestSaveRoundTrip(t *testing.T) {
	g := New(Config{})
	g.AddRelation("CBTC", "包括", "ZC", "CBTC包括ZC")
	g.AddRelation("ZC", "用于", "列车运行控制", "ZC用于列车运行控制")

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := g.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}

	stats := g.Statistics()
	if len(doc.Entities) != stats.NumEntities {
		t.Errorf("reloaded entities = %d, want %d", len(doc.Entities), stats.NumEntities)
	}
	if len(doc.Relations) != stats.NumRelations {
		t.Errorf("reloaded relations = %d, want %d", len(doc.Relations), stats.NumRelations)
	}
	if doc.Statistics.NumRelations != stats.NumRelations {
		t.Errorf("reloaded stats = %+v, want %+v", doc.Statistics, stats)
	}
}

func TestEntitiesInsertionOrder(t *testing.T) {
	g := New(Config{})
	g.AddEntity("CBTC", ner.TypeTech, "")
	g.AddEntity("ZC", ner.TypeTech, "")
	g.AddEntity("ATS", ner.TypeTech, "")

	names := []string{}
	for _, e := range g.Entities() {
		names = append(names, e.Name)
	}
	want := []string{"CBTC", "ZC", "ATS"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entity order = %v, want %v", names, want)
		}
	}
}
