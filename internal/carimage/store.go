package carimage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hitoshi/rentacar/internal/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StoredImage は保存済みの画像。
// RedirectURLが空でない場合、クライアントはそのURLから画像を取得する。
type StoredImage struct {
	Data        []byte
	Mime        string
	RedirectURL string
}

// ImageStore は車両画像の保存先のインターフェース。
type ImageStore interface {
	// Save は画像を保存し、車両の画像情報を更新する。車両が存在しない場合はrepository.ErrCarNotFoundを返す。
	Save(ctx context.Context, carID string, img *Image) error

	// Load は画像を返す。未登録の場合はnilを返す。
	Load(ctx context.Context, carID string) (*StoredImage, error)

	// Remove は車両削除後に画像を破棄する。
	Remove(ctx context.Context, carID string) error
}

// PostgresImageStore は画像本体をcarsテーブルに保存するImageStore。
type PostgresImageStore struct {
	carRepo repository.CarRepository
}

// NewPostgresImageStore はPostgresImageStoreを生成する。
func NewPostgresImageStore(carRepo repository.CarRepository) *PostgresImageStore {
	return &PostgresImageStore{carRepo: carRepo}
}

// Save は画像本体とMIMEタイプを車両行に保存する。
func (s *PostgresImageStore) Save(ctx context.Context, carID string, img *Image) error {
	return s.carRepo.UpdateImage(ctx, carID, img.SourceURL, img.Data, img.Mime)
}

// Load は車両行から画像本体を返す。
func (s *PostgresImageStore) Load(ctx context.Context, carID string) (*StoredImage, error) {
	data, mime, err := s.carRepo.FindImage(ctx, carID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || mime == "" {
		return nil, nil
	}
	return &StoredImage{Data: data, Mime: mime}, nil
}

// Remove は何もしない。画像本体は車両行とともに削除される。
func (s *PostgresImageStore) Remove(ctx context.Context, carID string) error {
	return nil
}

// ObjectStore はオブジェクトストレージへのアクセスを提供する。
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// MinioStore はMinIO/S3互換ストレージのObjectStore実装。
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore はMinIOに接続し、バケットが存在しない場合は作成する。
func NewMinioStore(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Put はオブジェクトをアップロードする。
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// PresignGet は署名付きGET URLを生成する。
func (m *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

// Delete はオブジェクトを削除する。
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// presignExpiry は署名付きURLの有効期限。
const presignExpiry = 15 * time.Minute

// ObjectImageStore は画像本体をオブジェクトストレージに保存するImageStore。
// carsテーブルには取得元URLとMIMEタイプのみを保存する。
type ObjectImageStore struct {
	carRepo repository.CarRepository
	objects ObjectStore
}

// NewObjectImageStore はObjectImageStoreを生成する。
func NewObjectImageStore(carRepo repository.CarRepository, objects ObjectStore) *ObjectImageStore {
	return &ObjectImageStore{carRepo: carRepo, objects: objects}
}

func objectKey(carID string) string {
	return "cars/" + carID
}

// Save は画像をアップロードしてから車両行の画像情報を更新する。
func (s *ObjectImageStore) Save(ctx context.Context, carID string, img *Image) error {
	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		return err
	}
	if car == nil {
		return repository.ErrCarNotFound
	}

	if err := s.objects.Put(ctx, objectKey(carID), bytes.NewReader(img.Data), int64(len(img.Data)), img.Mime); err != nil {
		return err
	}
	return s.carRepo.UpdateImage(ctx, carID, img.SourceURL, nil, img.Mime)
}

// Load は署名付きURLを返す。
func (s *ObjectImageStore) Load(ctx context.Context, carID string) (*StoredImage, error) {
	car, err := s.carRepo.FindByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car == nil || !car.HasImage() {
		return nil, nil
	}

	u, err := s.objects.PresignGet(ctx, objectKey(carID), presignExpiry)
	if err != nil {
		return nil, err
	}
	return &StoredImage{Mime: car.ImageMime, RedirectURL: u}, nil
}

// Remove はオブジェクトを削除する。
func (s *ObjectImageStore) Remove(ctx context.Context, carID string) error {
	return s.objects.Delete(ctx, objectKey(carID))
}

var (
	_ ImageStore  = (*PostgresImageStore)(nil)
	_ ImageStore  = (*ObjectImageStore)(nil)
	_ ObjectStore = (*MinioStore)(nil)
)
