package handler

import (
	"time"

	"github.com/hitoshi/rentacar/internal/model"
)

// carRentalResponse は車両に射影された予約期間。
type carRentalResponse struct {
	RentalID   string     `json:"rental_id"`
	RentDate   model.Date `json:"rent_date"`
	ReturnDate model.Date `json:"return_date"`
}

// carResponse は車両のAPIレスポンス。
type carResponse struct {
	ID             string              `json:"id"`
	Make           string              `json:"make"`
	Model          string              `json:"model"`
	Color          string              `json:"color"`
	ImageURL       string              `json:"image_url"`
	SourceImageURL string              `json:"source_image_url,omitempty"`
	Rentals        []carRentalResponse `json:"rentals"`
}

// rentalResponse は予約のAPIレスポンス。削除済み車両の予約ではCarがnullとなる。
type rentalResponse struct {
	ID           string       `json:"id"`
	CarID        string       `json:"car_id"`
	UserID       string       `json:"user_id"`
	UserName     string       `json:"user_name"`
	RentDate     model.Date   `json:"rent_date"`
	ReturnDate   model.Date   `json:"return_date"`
	DurationDays int          `json:"duration_days"`
	CreatedAt    time.Time    `json:"created_at"`
	Car          *carResponse `json:"car"`
}

func toCarResponse(car *model.Car) carResponse {
	resp := carResponse{
		ID:             car.ID,
		Make:           car.Make,
		Model:          car.Model,
		Color:          car.Color,
		SourceImageURL: car.ImageURL,
		Rentals:        make([]carRentalResponse, 0, len(car.Rentals)),
	}
	if car.HasImage() {
		resp.ImageURL = "/api/cars/" + car.ID + "/image"
	}
	for _, r := range car.Rentals {
		resp.Rentals = append(resp.Rentals, carRentalResponse{
			RentalID:   r.RentalID,
			RentDate:   r.RentDate,
			ReturnDate: r.ReturnDate,
		})
	}
	return resp
}

func toCarResponses(cars []*model.Car) []carResponse {
	resp := make([]carResponse, 0, len(cars))
	for _, car := range cars {
		resp = append(resp, toCarResponse(car))
	}
	return resp
}

func toRentalResponse(r *model.Rental) rentalResponse {
	resp := rentalResponse{
		ID:           r.ID,
		CarID:        r.CarID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		RentDate:     r.RentDate,
		ReturnDate:   r.ReturnDate,
		DurationDays: r.RentDate.DaysUntil(r.ReturnDate),
		CreatedAt:    r.CreatedAt,
	}
	if r.Car != nil {
		car := toCarResponse(r.Car)
		resp.Car = &car
	}
	return resp
}

func toRentalResponses(rentals []*model.Rental) []rentalResponse {
	resp := make([]rentalResponse, 0, len(rentals))
	for _, r := range rentals {
		resp = append(resp, toRentalResponse(r))
	}
	return resp
}

func toUserResponses(users []*model.User) []userResponse {
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	return resp
}
