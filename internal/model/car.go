package model

import "time"

// Car はレンタル対象の車両を表す。
// Rentalsは台帳（rentalsテーブル）から読み出し時に射影した予約サマリであり、個別には永続化しない。
type Car struct {
	ID        string
	Make      string
	Model     string
	Color     string
	ImageURL  string
	ImageData []byte
	ImageMime string
	Rentals   []CarRental
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasImage は車両画像が保存済みかどうかを返す。
func (c *Car) HasImage() bool {
	return c.ImageMime != ""
}

// CarRental は車両に紐づく予約期間のサマリ。
// RentDateからReturnDateまでの両端を含む期間、車両は利用不可となる。
type CarRental struct {
	RentalID   string
	RentDate   Date
	ReturnDate Date
}

// CarFilter は管理画面の車両検索条件。
// Queryはメーカー名・モデル名の部分一致（大文字小文字を区別しない）、Colorは完全一致。
type CarFilter struct {
	Query string
	Color string
}

// CarInput は車両の作成・更新時の入力値。
type CarInput struct {
	Make  string
	Model string
	Color string
}
