package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"music_stream/internal/config"
	"music_stream/internal/metrics"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

const (
	FolderChatFiles = "chat_files"
	FolderSongs     = "songs"
	FolderImages    = "images"
)

// Upload is a file received from a client. Open may be called more than once.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type UploadResult struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Name     string `json:"name"`
}

// MediaService pushes binary content to the media gateway and returns its public URL.
// Every failure is reported as an upload error.
type MediaService interface {
	Upload(ctx context.Context, file *Upload, folder string) (*UploadResult, error)
}

type mediaService struct {
	cfg    config.MediaConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[*UploadResult]
	now    func() time.Time
	log    logger.Logger
}

func NewMediaService(cfg config.MediaConfig, log logger.Logger) MediaService {
	log = log.With("component", "media")
	cb := gobreaker.NewCircuitBreaker[*UploadResult](gobreaker.Settings{
		Name:        "media-gateway",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// client mistakes must not open the breaker
		IsSuccessful: func(err error) bool {
			var rejected *gatewayRejection
			return err == nil || errors.As(err, &rejected) && rejected.status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Media gateway breaker state changed", "from", from.String(), "to", to.String())
			metrics.UploadBreakerState.Set(breakerStateValue(to))
		},
	})

	return &mediaService{
		cfg:    cfg,
		client: &http.Client{},
		cb:     cb,
		now:    time.Now,
		log:    log,
	}
}

type gatewayRejection struct {
	status int
	body   string
}

func (e *gatewayRejection) Error() string {
	return fmt.Sprintf("media gateway returned %d: %s", e.status, e.body)
}

func (s *mediaService) Upload(ctx context.Context, file *Upload, folder string) (*UploadResult, error) {
	if file == nil || file.Open == nil {
		return nil, apperrors.Validation("File is required")
	}
	if s.cfg.UploadURL == "" {
		return nil, apperrors.Upload("Failed to upload file", errors.New("media gateway is not configured"))
	}

	mimeType, err := sniff(file)
	if err != nil {
		return nil, apperrors.Upload("Failed to upload file", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	start := s.now()
	result, err := s.cb.Execute(func() (*UploadResult, error) {
		return s.post(ctx, file, folder)
	})
	if err != nil {
		metrics.UploadDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		s.log.Error("Upload failed", "error", err, "file", file.Name, "folder", folder)
		return nil, apperrors.Upload("Failed to upload file", err)
	}
	metrics.UploadDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	result.MimeType = mimeType
	result.Name = file.Name
	return result, nil
}

func sniff(file *Upload) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	mt, err := mimetype.DetectReader(rc)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	return mt.String(), nil
}

func (s *mediaService) post(ctx context.Context, file *Upload, folder string) (*UploadResult, error) {
	params := map[string]string{
		"folder":    folder,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}
	signature := Sign(params, s.cfg.APISecret)

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer rc.Close()
		err := writeUploadForm(mw, params, s.cfg.APIKey, signature, file.Name, rc)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.UploadURL, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &gatewayRejection{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	link := out.SecureURL
	if link == "" {
		link = out.URL
	}
	if _, err := url.ParseRequestURI(link); err != nil {
		return nil, fmt.Errorf("gateway returned no usable url")
	}

	return &UploadResult{URL: link}, nil
}

func writeUploadForm(mw *multipart.Writer, params map[string]string, apiKey, signature, name string, content io.Reader) error {
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.WriteField("api_key", apiKey); err != nil {
		return err
	}
	if err := mw.WriteField("signature", signature); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return mw.Close()
}

// Sign returns the gateway signature: sha1 over the sorted k=v pairs joined
// with '&', followed by the API secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
