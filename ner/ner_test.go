package ner

import "testing"

func mentionTexts(mentions []Mention, typ EntityType) []string {
	var out []string
	for _, m := range mentions {
		if m.Type == typ {
			out = append(out, m.Text)
		}
	}
	return out
}

func contains(items []string, want string) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}

func TestExtractAbbreviations(t *testing.T) {
	e := New(Config{})
	mentions := e.Extract("城市轨道交通信号系统(CBTC)包括区域控制器(ZC)和VOBC。")

	tech := mentionTexts(mentions, TypeTech)
	for _, want := range []string{"CBTC", "ZC", "VOBC"} {
		if !contains(tech, want) {
			t.Errorf("TECH mentions = %v, missing %q", tech, want)
		}
	}
}

func TestExtractAbbreviationHyphenated(t *testing.T) {
	e := New(Config{})
	tech := mentionTexts(e.Extract("The AV-FM damper and MIL-STD compliance."), TypeTech)
	if !contains(tech, "AV-FM") {
		t.Errorf("TECH mentions = %v, want AV-FM matched as one mention", tech)
	}
}

func TestExtractStandards(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"系统基于GB/T 28807-2012标准。", "GB/T 28807-2012"},
		{"参照TB/T 3528执行。", "TB/T 3528"},
		{"complies with IEC 62280 requirements", "IEC 62280"},
		{"IEEE 1474.1 defines CBTC performance", "IEEE 1474.1"},
	}

	e := New(Config{})
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			std := mentionTexts(e.Extract(tt.text), TypeStandard)
			if !contains(std, tt.want) {
				t.Errorf("STANDARD mentions for %q = %v, want %q", tt.text, std, tt.want)
			}
		})
	}
}

func TestExtractSystemNouns(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"区域控制器负责移动授权。", "区域控制器"},
		{"车载控制器安装在司机室。", "车载控制器"},
		{"列车自动监控系统与地面通信。", "列车自动监控系统"},
	}

	e := New(Config{})
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			sys := mentionTexts(e.Extract(tt.text), TypeSystem)
			if !contains(sys, tt.want) {
				t.Errorf("SYSTEM mentions for %q = %v, missing %q", tt.text, sys, tt.want)
			}
		})
	}
}

func TestExtractSystemLengthCap(t *testing.T) {
	e := New(Config{MaxSystemRunes: 5})
	// 列车自动监控系统 is 8 runes, above the cap of 5.
	sys := mentionTexts(e.Extract("列车自动监控系统运行正常。"), TypeSystem)
	if contains(sys, "列车自动监控系统") {
		t.Errorf("SYSTEM mentions = %v, expected 8-rune mention dropped by cap", sys)
	}
}

func TestExtractOverlapsPermitted(t *testing.T) {
	// 子系统 ends in both 系统 and 子系统 suffixes; both rules may fire.
	e := New(Config{})
	mentions := e.Extract("信号子系统负责联锁。")
	if len(mentions) == 0 {
		t.Fatal("expected at least one mention")
	}
}

func TestExtractNoMentions(t *testing.T) {
	e := New(Config{})
	if got := e.Extract("今天天气很好。"); len(got) != 0 {
		t.Errorf("Extract on plain prose = %v, want none", got)
	}
}

func TestDistinctCount(t *testing.T) {
	e := New(Config{})
	// CBTC appears twice but counts once.
	if got := e.DistinctCount("CBTC包括ZC，CBTC还包括ATS。"); got != 3 {
		t.Errorf("DistinctCount = %d, want 3", got)
	}
}

func TestCustomSuffixes(t *testing.T) {
	e := New(Config{SystemSuffixes: []string{"网络"}})
	sys := mentionTexts(e.Extract("骨干传输网络覆盖全线。"), TypeSystem)
	if len(sys) == 0 {
		t.Error("expected a SYSTEM mention for custom suffix 网络")
	}
}
