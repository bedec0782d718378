package carimage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/repository"
)

// --- モック ---

type mockFetcher struct {
	img *Image
	err error
}

func (m *mockFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	return m.img, m.err
}

// memoryCarRepo は画像関連メソッドのみを実装したCarRepository。
type memoryCarRepo struct {
	repository.CarRepository
	cars map[string]*model.Car
	data map[string][]byte
}

func newMemoryCarRepo(ids ...string) *memoryCarRepo {
	r := &memoryCarRepo{cars: map[string]*model.Car{}, data: map[string][]byte{}}
	for _, id := range ids {
		r.cars[id] = &model.Car{ID: id}
	}
	return r
}

func (r *memoryCarRepo) FindByID(ctx context.Context, id string) (*model.Car, error) {
	car, ok := r.cars[id]
	if !ok {
		return nil, nil
	}
	cp := *car
	return &cp, nil
}

func (r *memoryCarRepo) UpdateImage(ctx context.Context, id, sourceURL string, data []byte, mime string) error {
	car, ok := r.cars[id]
	if !ok {
		return repository.ErrCarNotFound
	}
	car.ImageURL = sourceURL
	car.ImageMime = mime
	r.data[id] = data
	return nil
}

func (r *memoryCarRepo) FindImage(ctx context.Context, id string) ([]byte, string, error) {
	car, ok := r.cars[id]
	if !ok || car.ImageMime == "" {
		return nil, "", nil
	}
	return r.data[id], car.ImageMime, nil
}

type memoryObjectStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (s *memoryObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return errors.New("size mismatch")
	}
	s.objects[key] = b
	return nil
}

func (s *memoryObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://objects.example.com/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (s *memoryObjectStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

var testImage = &Image{SourceURL: "https://cdn.example.com/car.png", Data: pngData, Mime: "image/png"}

// --- Service + PostgresImageStore ---

func TestService_SetImage_PostgresStore(t *testing.T) {
	carID := uuid.NewString()
	repo := newMemoryCarRepo(carID)
	svc := NewService(&mockFetcher{img: testImage}, NewPostgresImageStore(repo))
	ctx := context.Background()

	source, err := svc.SetImage(ctx, carID, "https://cdn.example.com/page")
	if err != nil {
		t.Fatalf("SetImage returned error: %v", err)
	}
	if source != testImage.SourceURL {
		t.Errorf("source = %q, want %q", source, testImage.SourceURL)
	}

	img, err := svc.GetImage(ctx, carID)
	if err != nil {
		t.Fatalf("GetImage returned error: %v", err)
	}
	if !bytes.Equal(img.Data, pngData) || img.Mime != "image/png" || img.RedirectURL != "" {
		t.Errorf("unexpected image: %+v", img)
	}
}

func TestService_SetImage_CarNotFound(t *testing.T) {
	repo := newMemoryCarRepo()
	svc := NewService(&mockFetcher{img: testImage}, NewPostgresImageStore(repo))

	_, err := svc.SetImage(context.Background(), uuid.NewString(), "https://cdn.example.com/car.png")
	assertAPIErrorCode(t, err, model.ErrCodeCarNotFound)
}

func TestService_SetImage_MalformedCarID(t *testing.T) {
	svc := NewService(&mockFetcher{err: errors.New("should not be called")}, NewPostgresImageStore(newMemoryCarRepo()))

	_, err := svc.SetImage(context.Background(), "car-1", "https://cdn.example.com/car.png")
	assertAPIErrorCode(t, err, model.ErrCodeCarNotFound)
}

func TestService_SetImage_FetchError(t *testing.T) {
	carID := uuid.NewString()
	svc := NewService(&mockFetcher{err: model.NewSSRFBlockedError()}, NewPostgresImageStore(newMemoryCarRepo(carID)))

	_, err := svc.SetImage(context.Background(), carID, "http://10.0.0.1/")
	assertAPIErrorCode(t, err, model.ErrCodeSSRFBlocked)
}

func TestService_GetImage_NotRegistered(t *testing.T) {
	carID := uuid.NewString()
	svc := NewService(&mockFetcher{}, NewPostgresImageStore(newMemoryCarRepo(carID)))

	_, err := svc.GetImage(context.Background(), carID)
	assertAPIErrorCode(t, err, model.ErrCodeImageNotFound)
}

// --- ObjectImageStore ---

// TestObjectImageStore_SaveAndLoad は画像本体をオブジェクトストレージに置き、署名付きURLを返すことを検証する。
func TestObjectImageStore_SaveAndLoad(t *testing.T) {
	carID := uuid.NewString()
	repo := newMemoryCarRepo(carID)
	objects := newMemoryObjectStore()
	store := NewObjectImageStore(repo, objects)
	ctx := context.Background()

	if err := store.Save(ctx, carID, testImage); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if !bytes.Equal(objects.objects["cars/"+carID], pngData) {
		t.Error("object should be uploaded under cars/<id>")
	}
	if repo.data[carID] != nil {
		t.Error("image bytes must not be stored in the car row")
	}
	if repo.cars[carID].ImageMime != "image/png" {
		t.Errorf("ImageMime = %q, want image/png", repo.cars[carID].ImageMime)
	}

	img, err := store.Load(ctx, carID)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if img == nil || img.RedirectURL == "" || img.Data != nil {
		t.Fatalf("expected redirect image, got %+v", img)
	}

	if err := store.Remove(ctx, carID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "cars/"+carID {
		t.Errorf("deleted = %v", objects.deleted)
	}
}

func TestObjectImageStore_Save_CarNotFound(t *testing.T) {
	objects := newMemoryObjectStore()
	store := NewObjectImageStore(newMemoryCarRepo(), objects)

	err := store.Save(context.Background(), uuid.NewString(), testImage)
	if !errors.Is(err, repository.ErrCarNotFound) {
		t.Fatalf("expected ErrCarNotFound, got %v", err)
	}
	if len(objects.objects) != 0 {
		t.Error("nothing should be uploaded for a missing car")
	}
}

func TestObjectImageStore_Save_PutError(t *testing.T) {
	carID := uuid.NewString()
	repo := newMemoryCarRepo(carID)
	objects := newMemoryObjectStore()
	objects.putErr = errors.New("bucket unavailable")
	store := NewObjectImageStore(repo, objects)

	if err := store.Save(context.Background(), carID, testImage); !errors.Is(err, objects.putErr) {
		t.Fatalf("expected put error, got %v", err)
	}
	if repo.cars[carID].ImageMime != "" {
		t.Error("car row must not be updated when upload fails")
	}
}

func TestObjectImageStore_Load_NoImage(t *testing.T) {
	carID := uuid.NewString()
	store := NewObjectImageStore(newMemoryCarRepo(carID), newMemoryObjectStore())

	img, err := store.Load(context.Background(), carID)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if img != nil {
		t.Errorf("expected nil image, got %+v", img)
	}
}
