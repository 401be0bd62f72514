package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Language
	}{
		{"pure chinese", "城市轨道交通信号系统包括区域控制器", Chinese},
		{"pure english", "The zone controller supervises train movement.", English},
		{"empty", "", English},
		{"digits and punctuation only", "12345 --- !!!", English},
		{"mixed mostly chinese", "CBTC包括区域控制器和列车自动监控系统", Chinese},
		{"mixed mostly english", "The CBTC system (列控) uses moving block signalling throughout.", English},
		{"abbreviation heavy chinese", "ZC通过RSSP协议与ATS通信", Chinese},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	text := "系统基于GB/T 28807-2012标准"
	first := Detect(text)
	for i := 0; i < 10; i++ {
		if got := Detect(text); got != first {
			t.Fatalf("Detect is not deterministic: got %q then %q", first, got)
		}
	}
}
