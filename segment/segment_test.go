package segment

import (
	"reflect"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapse whitespace", "a  b\t\nc", "a b c"},
		{"page marker", "before Page 12 after", "before  after"},
		{"dash page marker", "before - 3 - after", "before  after"},
		{"url removed", "see https://example.com/spec for details", "see  for details"},
		{"email removed", "contact ops@example.com today", "contact  today"},
		{"dot run", "chapter one.....end", "chapter one...end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSentencesChinese(t *testing.T) {
	text := "CBTC系统包括区域控制器ZC。ZC用于列车运行控制！该系统符合国家相关标准？"
	want := []string{"CBTC系统包括区域控制器ZC。", "ZC用于列车运行控制！", "该系统符合国家相关标准？"}
	if got := Sentences(text); !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %v, want %v", got, want)
	}
}

func TestSentencesDropsShortFragments(t *testing.T) {
	text := "第3章。CBTC系统包括区域控制器和列车自动监控系统。1.2 概述。"
	want := []string{"CBTC系统包括区域控制器和列车自动监控系统。"}
	if got := Sentences(text); !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %v, want %v", got, want)
	}
}

func TestSentencesEnglish(t *testing.T) {
	text := "The ZC supervises trains. The ATS displays status."
	got := Sentences(text)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
	if got[0] != "The ZC supervises trains." {
		t.Errorf("first sentence = %q", got[0])
	}
}

func TestSentencesKeepsStandardCodes(t *testing.T) {
	text := "The system follows IEEE 1474.1 throughout. It also cites GB/T 28807-2012."
	got := Sentences(text)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
	if !strings.Contains(got[0], "1474.1") {
		t.Errorf("standard code split apart: %q", got[0])
	}
}

func TestSentencesEmpty(t *testing.T) {
	if got := Sentences(""); got != nil {
		t.Errorf("Sentences(\"\") = %v, want nil", got)
	}
	if got := Sentences("   "); got != nil {
		t.Errorf("Sentences(blank) = %v, want nil", got)
	}
}

func TestSentencesNoTerminator(t *testing.T) {
	got := Sentences("trailing fragment without a period")
	if len(got) != 1 {
		t.Fatalf("got %d sentences, want 1", len(got))
	}
}
