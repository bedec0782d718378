// Package rental はレンタルの空き判定・予約作成・予約一覧のドメインロジックを提供する。
//
// 日付はすべてmodel.Date（UTCの0時）で扱い、予約期間は貸出日から返却日までの両端を含む。
package rental

import "github.com/hitoshi/rentacar/internal/model"

// Covers は予約rが日付dを含むかどうかを返す（両端を含む）。
func Covers(r model.CarRental, d model.Date) bool {
	return !d.Before(r.RentDate) && !d.After(r.ReturnDate)
}

// Intersects は2つの閉区間[aStart, aEnd]と[bStart, bEnd]に共通する日が存在するかどうかを返す。
// 新規予約の各日にCoversを適用した結果と一致する。
func Intersects(aStart, aEnd, bStart, bEnd model.Date) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// IsAvailable は車両が日付dに予約されていないかどうかを返す。
func IsAvailable(car *model.Car, d model.Date) bool {
	for _, r := range car.Rentals {
		if Covers(r, d) {
			return false
		}
	}
	return true
}

// FilterAvailable は日付dに空いている車両を入力順のまま返す。
func FilterAvailable(cars []*model.Car, d model.Date) []*model.Car {
	available := make([]*model.Car, 0, len(cars))
	for _, car := range cars {
		if IsAvailable(car, d) {
			available = append(available, car)
		}
	}
	return available
}

// ProjectRentals は台帳の予約を各車両のRentalsに射影する。
// 車両ごとの順序はrentalsの並び順に従う。対応する車両がない予約は無視する。
func ProjectRentals(cars []*model.Car, rentals []*model.Rental) {
	byID := make(map[string]*model.Car, len(cars))
	for _, car := range cars {
		car.Rentals = []model.CarRental{}
		byID[car.ID] = car
	}
	for _, r := range rentals {
		if car, ok := byID[r.CarID]; ok {
			car.Rentals = append(car.Rentals, r.Summary())
		}
	}
}
