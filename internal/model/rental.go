package model

import "time"

// Rental はレンタル台帳の1件を表す。作成後は変更しない。
// CarIDは弱参照であり、車両が削除されても予約は残る。
type Rental struct {
	ID         string
	CarID      string
	UserID     string
	UserName   string
	RentDate   Date
	ReturnDate Date
	CreatedAt  time.Time

	// Car は一覧取得時に結合した車両情報。車両が存在しない場合はnil。
	Car *Car
}

// Summary は車両側に射影する予約サマリを返す。
func (r *Rental) Summary() CarRental {
	return CarRental{
		RentalID:   r.ID,
		RentDate:   r.RentDate,
		ReturnDate: r.ReturnDate,
	}
}

// DashboardStats は管理画面ダッシュボードの集計値。
type DashboardStats struct {
	TotalUsers    int
	TotalCars     int
	ActiveRentals int
}
