package rental

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
)

// --- インメモリのストア ---

type memoryStore struct {
	mu      sync.Mutex
	cars    []*model.Car
	rentals []*model.Rental
	now     time.Time

	listErr       error
	listRentalErr error
	createErr     error
	createCalls   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (s *memoryStore) addCar(maker, name, color string) *model.Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	car := &model.Car{ID: uuid.NewString(), Make: maker, Model: name, Color: color}
	s.cars = append(s.cars, car)
	return car
}

func (s *memoryStore) copyCar(c *model.Car) *model.Car {
	cp := *c
	cp.Rentals = nil
	return &cp
}

// carRepo

func (s *memoryStore) Create(ctx context.Context, car *model.Car) error { return nil }
func (s *memoryStore) FindByID(ctx context.Context, id string) (*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cars {
		if c.ID == id {
			return s.copyCar(c), nil
		}
	}
	return nil, nil
}
func (s *memoryStore) List(ctx context.Context) ([]*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	cars := make([]*model.Car, 0, len(s.cars))
	for _, c := range s.cars {
		cars = append(cars, s.copyCar(c))
	}
	return cars, nil
}
func (s *memoryStore) ListByIDs(ctx context.Context, ids []string) ([]*model.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var cars []*model.Car
	for _, c := range s.cars {
		if want[c.ID] {
			cars = append(cars, s.copyCar(c))
		}
	}
	return cars, nil
}
func (s *memoryStore) Search(ctx context.Context, filter model.CarFilter) ([]*model.Car, error) {
	return s.List(ctx)
}
func (s *memoryStore) Update(ctx context.Context, id string, input model.CarInput) (*model.Car, error) {
	return nil, nil
}
func (s *memoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cars {
		if c.ID == id {
			s.cars = append(s.cars[:i], s.cars[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
func (s *memoryStore) Count(ctx context.Context) (int, error) { return len(s.cars), nil }
func (s *memoryStore) UpdateImage(ctx context.Context, id, sourceURL string, data []byte, mime string) error {
	return nil
}
func (s *memoryStore) FindImage(ctx context.Context, id string) ([]byte, string, error) {
	return nil, "", nil
}

// rentalStore はRentalRepositoryを実装する。CarRepositoryとメソッド名が衝突するため別型にする。
type rentalStore struct{ *memoryStore }

func (r rentalStore) CreateIfAvailable(ctx context.Context, rental *model.Rental) error {
	s := r.memoryStore
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}

	found := false
	for _, c := range s.cars {
		if c.ID == rental.CarID {
			found = true
			break
		}
	}
	if !found {
		return repository.ErrCarNotFound
	}
	for _, existing := range s.rentals {
		if existing.CarID == rental.CarID &&
			Intersects(existing.RentDate, existing.ReturnDate, rental.RentDate, rental.ReturnDate) {
			return repository.ErrRentalConflict
		}
	}

	s.now = s.now.Add(time.Second)
	rental.ID = uuid.NewString()
	rental.CreatedAt = s.now
	cp := *rental
	s.rentals = append(s.rentals, &cp)
	return nil
}
func (r rentalStore) ListByCarIDs(ctx context.Context, carIDs []string) ([]*model.Rental, error) {
	s := r.memoryStore
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listRentalErr != nil {
		return nil, s.listRentalErr
	}
	want := map[string]bool{}
	for _, id := range carIDs {
		want[id] = true
	}
	var out []*model.Rental
	for _, rt := range s.rentals {
		if want[rt.CarID] {
			cp := *rt
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (r rentalStore) ListByUserID(ctx context.Context, userID string) ([]*model.Rental, error) {
	s := r.memoryStore
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Rental
	for _, rt := range s.rentals {
		if rt.UserID == userID {
			cp := *rt
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (r rentalStore) ListAll(ctx context.Context) ([]*model.Rental, error) {
	s := r.memoryStore
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Rental, 0, len(s.rentals))
	for _, rt := range s.rentals {
		cp := *rt
		out = append(out, &cp)
	}
	return out, nil
}
func (r rentalStore) CountActiveOn(ctx context.Context, date model.Date) (int, error) {
	return 0, nil
}

func (s *memoryStore) ledgerSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rentals)
}

var (
	_ repository.CarRepository    = (*memoryStore)(nil)
	_ repository.RentalRepository = rentalStore{}
)
