package option

import "testing"

func TestToolbarPosition_Decode(t *testing.T) {
	tests := []struct {
		symbol string
		want   int
		ok     bool
	}{
		{"Top left corner", 0, true},
		{"Top center", 1, true},
		{"Top right corner", 2, true},
		{"Bottom left corner", 3, true},
		{"Bottom center", 4, true},
		{"Bottom right corner", 5, true},
		{"top left corner", 0, false},
		{"Middle", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ToolbarPosition.Decode(tt.symbol)
		if ok != tt.ok {
			t.Errorf("Decode(%q) ok = %v, want %v", tt.symbol, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Decode(%q) = %d, want %d", tt.symbol, got, tt.want)
		}
	}
}

func TestToolbarMonitor_RoundTrip(t *testing.T) {
	for i := 0; i < ToolbarMonitor.Len(); i++ {
		sym := ToolbarMonitor.Encode(i)
		got, ok := ToolbarMonitor.Decode(sym)
		if !ok || got != i {
			t.Errorf("Decode(Encode(%d)) = %d, %v", i, got, ok)
		}
	}
	if ToolbarMonitor.Encode(1) != AllMonitors {
		t.Errorf("Encode(1) = %q, want %q", ToolbarMonitor.Encode(1), AllMonitors)
	}
}

func TestDecode_UnknownKeepsCaller(t *testing.T) {
	current := 4
	if idx, ok := ToolbarPosition.Decode("Left of the moon"); ok {
		current = idx
	}
	if current != 4 {
		t.Errorf("current = %d, want 4 (unchanged)", current)
	}
}

func TestEncode_OutOfRangePanics(t *testing.T) {
	for _, idx := range []int{-1, 6} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Encode(%d) did not panic", idx)
				}
			}()
			ToolbarPosition.Encode(idx)
		}()
	}
}

func TestSymbols_ReturnsCopy(t *testing.T) {
	s := ToolbarMonitor.Symbols()
	s[0] = "mutated"
	if ToolbarMonitor.Encode(0) != MainMonitor {
		t.Error("Symbols() exposed internal slice")
	}
}
