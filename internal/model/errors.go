package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, rental, car, support, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCarNotFound           = "CAR_NOT_FOUND"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeInvalidDate           = "INVALID_DATE"
	ErrCodeInvalidDuration       = "INVALID_DURATION"
	ErrCodeOutsideCampaignWindow = "OUTSIDE_CAMPAIGN_WINDOW"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInvalidCar            = "INVALID_CAR"
	ErrCodeInvalidEmail          = "INVALID_EMAIL"
	ErrCodeWeakPassword          = "WEAK_PASSWORD"
	ErrCodeInvalidName           = "INVALID_NAME"
	ErrCodeInvalidMessage        = "INVALID_MESSAGE"
	ErrCodeInvalidImageURL       = "INVALID_IMAGE_URL"
	ErrCodeSSRFBlocked           = "SSRF_BLOCKED"
	ErrCodeImageFetchFailed      = "IMAGE_FETCH_FAILED"
	ErrCodeImageNotFound         = "IMAGE_NOT_FOUND"
	ErrCodeRentalConflict        = "RENTAL_CONFLICT"
	ErrCodeBookingInProgress     = "BOOKING_IN_PROGRESS"
	ErrCodeEmailInUse            = "EMAIL_IN_USE"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeCSRFTokenInvalid      = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	ErrCodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewCarNotFoundError は車両未検出エラーを生成する。
func NewCarNotFoundError(carID string) *APIError {
	return &APIError{
		Code:     ErrCodeCarNotFound,
		Message:  fmt.Sprintf("指定された車両が見つかりません: %s", carID),
		Category: "car",
		Action:   "車両一覧を再読み込みしてから選択し直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidDateError は日付形式が不正な場合のエラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", value),
		Category: "validation",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidDurationError は貸出日数が範囲外の場合のエラーを生成する。
func NewInvalidDurationError(days, minDays, maxDays int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDuration,
		Message:  fmt.Sprintf("無効な貸出日数です: %d日", days),
		Category: "validation",
		Action:   fmt.Sprintf("貸出日数は%d日から%d日の範囲で指定してください。", minDays, maxDays),
	}
}

// NewOutsideCampaignWindowError は貸出日がキャンペーン期間外の場合のエラーを生成する。
func NewOutsideCampaignWindowError(start, end Date) *APIError {
	return &APIError{
		Code:     ErrCodeOutsideCampaignWindow,
		Message:  "貸出日がキャンペーン期間外です。",
		Category: "validation",
		Action:   fmt.Sprintf("%s から %s の範囲の貸出日を指定してください。", start, end),
	}
}

// NewInvalidRequestError はリクエストボディの解析に失敗した場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidCarError は車両の入力値が不正な場合のエラーを生成する。
func NewInvalidCarError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCar,
		Message:  fmt.Sprintf("車両情報が不正です: %s", reason),
		Category: "validation",
		Action:   "メーカー・モデル・色を64文字以内で入力してください。",
	}
}

// NewInvalidEmailError はメールアドレスの形式が不正な場合のエラーを生成する。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "メールアドレスの形式が正しくありません。",
		Category: "validation",
		Action:   "有効なメールアドレスを入力してください。",
	}
}

// NewWeakPasswordError はパスワードが短すぎる場合のエラーを生成する。
func NewWeakPasswordError(minLength int) *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードが短すぎます。",
		Category: "validation",
		Action:   fmt.Sprintf("パスワードは%d文字以上で設定してください。", minLength),
	}
}

// NewInvalidNameError は氏名が空または長すぎる場合のエラーを生成する。
func NewInvalidNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  "氏名が正しくありません。",
		Category: "validation",
		Action:   "氏名を1文字以上100文字以内で入力してください。",
	}
}

// NewInvalidMessageError はサポートメッセージ本文が不正な場合のエラーを生成する。
func NewInvalidMessageError(maxLength int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMessage,
		Message:  "メッセージ本文が正しくありません。",
		Category: "validation",
		Action:   fmt.Sprintf("メッセージは1文字以上%d文字以内で入力してください。", maxLength),
	}
}

// NewInvalidImageURLError は画像URLが不正な場合のエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("無効な画像URLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewImageFetchFailedError は画像取得失敗エラーを生成する。
func NewImageFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImageFetchFailed,
		Message:  fmt.Sprintf("画像の取得に失敗しました: %s", reason),
		Category: "car",
		Action:   "URLが画像またはog:imageを持つページを指しているか確認してください。",
	}
}

// NewImageNotFoundError は車両画像が未登録の場合のエラーを生成する。
func NewImageNotFoundError(carID string) *APIError {
	return &APIError{
		Code:     ErrCodeImageNotFound,
		Message:  fmt.Sprintf("車両画像が登録されていません: %s", carID),
		Category: "car",
		Action:   "管理画面から画像を登録してください。",
	}
}

// NewRentalConflictError は予約期間が既存の予約と重複する場合のエラーを生成する。
func NewRentalConflictError(carID string, rentDate, returnDate Date) *APIError {
	return &APIError{
		Code:     ErrCodeRentalConflict,
		Message:  fmt.Sprintf("車両 %s は %s から %s の期間に既に予約されています。", carID, rentDate, returnDate),
		Category: "rental",
		Action:   "別の日付または別の車両を選択してください。",
	}
}

// NewBookingInProgressError は同じ車両への予約処理が実行中の場合のエラーを生成する。
func NewBookingInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeBookingInProgress,
		Message:  "この車両の予約処理が進行中です。",
		Category: "rental",
		Action:   "しばらく待ってから予約一覧を確認してください。",
	}
}

// NewEmailInUseError はメールアドレスが登録済みの場合のエラーを生成する。
func NewEmailInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailInUse,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRFトークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError(retryAfterSec int) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   fmt.Sprintf("%d秒ほど待ってから再度お試しください。", retryAfterSec),
	}
}

// NewServiceUnavailableError はデータストアに接続できない場合のエラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "現在サービスを利用できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
