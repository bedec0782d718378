// Package carimage は車両画像の取得と保存を提供する。
package carimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/rentacar/internal/model"
	"github.com/hitoshi/rentacar/internal/security"
	"golang.org/x/net/html"
)

// userAgent は画像取得時のUser-Agent。
const userAgent = "rentacar/1.0 image fetcher"

// maxHTMLSize はog:image探索のために読み込むHTMLの最大サイズ（1MB）。
const maxHTMLSize = 1 * 1024 * 1024

// SSRFValidator はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化してテスタビリティを向上させる。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Image は取得した画像。
type Image struct {
	SourceURL string
	Data      []byte
	Mime      string
}

// Fetcher は管理者が指定したURLから車両画像を取得する。
// URLがHTMLページを指す場合は、最初のog:imageを1回だけたどる。
type Fetcher struct {
	ssrfGuard SSRFValidator
	timeout   time.Duration
	maxSize   int64
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(ssrfGuard SSRFValidator, timeout time.Duration, maxSize int64) *Fetcher {
	return &Fetcher{
		ssrfGuard: ssrfGuard,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// Fetch は画像を取得する。
// URLの検証に失敗した場合はINVALID_IMAGE_URLまたはSSRF_BLOCKED、
// 取得に失敗した場合はIMAGE_FETCH_FAILEDのAPIErrorを返す。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := f.validate(rawURL); err != nil {
		return nil, err
	}

	body, mimeType, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if isImageMime(mimeType) {
		return &Image{SourceURL: rawURL, Data: body, Mime: mimeType}, nil
	}
	if mimeType != "text/html" && mimeType != "application/xhtml+xml" {
		return nil, model.NewImageFetchFailedError(fmt.Sprintf("unsupported content type %q", mimeType))
	}

	imageURL := ParseOGImage(body, rawURL)
	if imageURL == "" {
		return nil, model.NewImageFetchFailedError("page has no og:image")
	}
	slog.Debug("following og:image", slog.String("page_url", rawURL), slog.String("image_url", imageURL))

	if err := f.validate(imageURL); err != nil {
		return nil, err
	}
	body, mimeType, err = f.get(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	if !isImageMime(mimeType) {
		return nil, model.NewImageFetchFailedError(fmt.Sprintf("og:image is not an image (%q)", mimeType))
	}
	return &Image{SourceURL: imageURL, Data: body, Mime: mimeType}, nil
}

func (f *Fetcher) validate(rawURL string) error {
	if f.ssrfGuard == nil {
		return nil
	}
	err := f.ssrfGuard.ValidateURL(rawURL)
	if err == nil {
		return nil
	}
	if errors.Is(err, security.ErrBlockedURL) {
		slog.Warn("image url blocked by ssrf guard", slog.String("url", rawURL), slog.String("error", err.Error()))
		return model.NewSSRFBlockedError()
	}
	return model.NewInvalidImageURLError(err.Error())
}

// get はURLを取得し、本体とMIMEタイプを返す。
func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", model.NewInvalidImageURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "image/*,text/html;q=0.8")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		slog.Warn("image fetch failed", slog.String("url", rawURL), slog.String("error", err.Error()))
		return nil, "", model.NewImageFetchFailedError("request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", model.NewImageFetchFailedError(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	limit := f.maxSize
	if !isImageMime(mimeType) && limit > maxHTMLSize {
		limit = maxHTMLSize
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", model.NewImageFetchFailedError("failed to read response body")
	}
	if int64(len(body)) > limit {
		return nil, "", model.NewImageFetchFailedError(fmt.Sprintf("response exceeds %d bytes", limit))
	}
	if len(body) == 0 {
		return nil, "", model.NewImageFetchFailedError("empty response body")
	}
	return body, mimeType, nil
}

func (f *Fetcher) httpClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(f.timeout, f.maxSize)
	}
	return &http.Client{Timeout: f.timeout}
}

// ParseOGImage はHTMLからog:imageのURLを取り出す。相対URLはbaseURLを基準に解決する。
// 見つからない場合は空文字列を返す。
func ParseOGImage(htmlBody []byte, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)
			if tagName == "body" {
				return ""
			}
			if tagName != "meta" || !hasAttr {
				continue
			}

			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "property", "name":
					property = strings.ToLower(strings.TrimSpace(string(val)))
				case "content":
					content = strings.TrimSpace(string(val))
				}
				if !more {
					break
				}
			}
			if (property == "og:image" || property == "og:image:url") && content != "" {
				ref, err := url.Parse(content)
				if err != nil {
					continue
				}
				return base.ResolveReference(ref).String()
			}
		}
	}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。SVGはスクリプトを含みうるため許可しない。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml"
}
