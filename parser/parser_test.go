package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestTextParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("CBTC包括ZC和ATS。"), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	result, err := (&TextParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(result.Sections))
	}
	if result.Sections[0].Content != "CBTC包括ZC和ATS。" {
		t.Errorf("content = %q", result.Sections[0].Content)
	}
}

func TestTextParserEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	result, err := (&TextParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Sections) != 0 {
		t.Errorf("sections = %d, want 0", len(result.Sections))
	}
}

func TestTextParserMissingFile(t *testing.T) {
	if _, err := (&TextParser{}).Parse(context.Background(), "/no/such/file.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestXLSXParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "信号")
	f.SetCellValue("Sheet1", "B1", "接口")
	f.SetCellValue("Sheet1", "A2", "ZC")
	f.SetCellValue("Sheet1", "B2", "RSSP")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("writing test workbook: %v", err)
	}
	f.Close()

	result, err := (&XLSXParser{}).Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(result.Sections))
	}
	s := result.Sections[0]
	if s.Type != "table" {
		t.Errorf("type = %q, want table", s.Type)
	}
	if want := "| 信号 | 接口 |\n| ZC | RSSP |\n"; s.Content != want {
		t.Errorf("content = %q, want %q", s.Content, want)
	}
}

func TestRegistryForPath(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "doc.txt", want: "txt"},
		{path: "doc.PDF", want: "pdf"},
		{path: "doc.xlsx", want: "xlsx"},
		{path: "doc.docx", wantErr: true},
		{path: "noext", wantErr: true},
	}
	for _, tt := range tests {
		p, err := r.ForPath(tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForPath(%q): expected error", tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("ForPath(%q): %v", tt.path, err)
			continue
		}
		found := false
		for _, f := range p.SupportedFormats() {
			if f == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("ForPath(%q) returned parser for %v, want %s", tt.path, p.SupportedFormats(), tt.want)
		}
	}
}

func TestIsLikelyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"1.1 系统概述", true},
		{"3.9.1 Interface requirements", true},
		{"第三章 信号系统", true},
		{"附录A 缩略语", true},
		{"SYSTEM OVERVIEW", true},
		{"Chapter 2 Scope", true},
		{"区域控制器负责生成移动授权，并通过无线通信下发给车载控制器。", false},
		{"the system shall comply with the standard", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLikelyHeading(tt.line); got != tt.want {
			t.Errorf("isLikelyHeading(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestClassifySectionType(t *testing.T) {
	tests := []struct {
		heading string
		content string
		want    string
	}{
		{"术语和定义", "本标准采用下列术语。", "definition"},
		{"功能要求", "系统应满足如下条件。", "requirement"},
		{"表3 接口信号", "信号 | 方向 | 周期 | 说明 | 备注", "table"},
		{"附录B", "补充材料。", "annex"},
		{"4.2 系统结构", "系统由地面设备和车载设备构成。", "section"},
	}
	for _, tt := range tests {
		if got := classifySectionType(tt.heading, tt.content); got != tt.want {
			t.Errorf("classifySectionType(%q) = %q, want %q", tt.heading, got, tt.want)
		}
	}
}

func TestSplitPageIntoSections(t *testing.T) {
	text := "1.1 系统概述\n城市轨道交通信号系统由多个子系统构成。\n1.2 功能要求\n系统应满足行车安全要求。"
	sections := splitPageIntoSections(text, 3)
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Heading != "1.1 系统概述" {
		t.Errorf("heading = %q", sections[0].Heading)
	}
	if sections[0].PageNumber != 3 {
		t.Errorf("page = %d, want 3", sections[0].PageNumber)
	}
	if sections[1].Type != "requirement" {
		t.Errorf("type = %q, want requirement", sections[1].Type)
	}
}

func TestParseResultText(t *testing.T) {
	r := &ParseResult{Sections: []Section{
		{Heading: "概述", Content: "第一段。"},
		{Content: "第二段。"},
	}}
	want := "概述\n第一段。\n第二段。\n"
	if got := r.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
