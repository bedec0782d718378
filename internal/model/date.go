package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout は日付の外部表現（JSON・クエリパラメータ）の書式。
const DateLayout = "2006-01-02"

// Date は時刻を持たない暦日を表す。
// 内部では常にUTCの0時0分として保持し、比較は日単位で行う。
// ゼロ値は「日付なし」を表す。
type Date struct {
	t time.Time
}

// NewDate は年月日からDateを生成する。
// 範囲外の月日はtime.Dateと同様に正規化される。
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf はtime.Timeの持つロケーションにおける暦日を返す。
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today は現在のUTC暦日を返す。
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate は "YYYY-MM-DD" 形式の文字列をDateに変換する。
// 存在しない日付（2025-02-30など）はエラーとなる。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero はDateがゼロ値かどうかを返す。
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time はUTC 0時のtime.Timeを返す。
func (d Date) Time() time.Time {
	return d.t
}

// AddDays はn日後のDateを返す。
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// DaysUntil はdからotherまでの日数を返す。
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Before はdがotherより前の日付かどうかを返す。
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After はdがotherより後の日付かどうかを返す。
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal はdとotherが同じ日付かどうかを返す。
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// Compare はdがotherより前なら-1、同じなら0、後なら+1を返す。
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// String は "YYYY-MM-DD" 形式の文字列を返す。ゼロ値は空文字列。
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON はDateを "YYYY-MM-DD" 文字列としてエンコードする。
// ゼロ値はnullになる。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON は "YYYY-MM-DD" 文字列またはnullをデコードする。
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan はsql.Scannerを実装する。
// DATE列はドライバによってtime.Time、[]byte、stringのいずれかで返るため、すべて受け付ける。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value はdriver.Valuerを実装する。ゼロ値はNULLとして書き込む。
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
