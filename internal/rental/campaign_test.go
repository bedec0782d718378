package rental

import "testing"

func TestCampaignWindow_Contains(t *testing.T) {
	w := NewCampaignWindow(d(6, 1), d(6, 30))

	tests := []struct {
		name string
		day  int
		mon  int
		want bool
	}{
		{"開始日", 1, 6, true},
		{"終了日", 30, 6, true},
		{"期間中", 15, 6, true},
		{"開始前", 31, 5, false},
		{"終了後", 1, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(d(tt.mon, tt.day)); got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCampaignWindow_ZeroValueAcceptsAll は未設定の受付期間がすべての日付を受け付けることを検証する。
func TestCampaignWindow_ZeroValueAcceptsAll(t *testing.T) {
	var w CampaignWindow
	if !w.IsOpen() {
		t.Error("zero window should be open")
	}
	if !w.Contains(d(1, 1)) || !w.Contains(d(12, 31)) {
		t.Error("zero window should contain every date")
	}
}
