package rental

import "github.com/hitoshi/rentacar/internal/model"

// CampaignWindow は予約を受け付ける期間。ゼロ値はすべての日付を受け付ける。
type CampaignWindow struct {
	Start model.Date
	End   model.Date
}

// NewCampaignWindow は開始日と終了日（両端を含む）から受付期間を生成する。
func NewCampaignWindow(start, end model.Date) CampaignWindow {
	return CampaignWindow{Start: start, End: end}
}

// IsOpen は受付期間が設定されていないかどうかを返す。
func (w CampaignWindow) IsOpen() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains は日付dが受付期間内かどうかを返す。
func (w CampaignWindow) Contains(d model.Date) bool {
	if w.IsOpen() {
		return true
	}
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}
