package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/PaulSonOfLars/gotgbot/v2"
)

// Bot API file downloads are capped at 20MB, leave headroom.
const maxDownloadBytes = 24 << 20

// downloadFile resolves a file id through the platform and fetches its
// bytes. The file timeout class applies to the whole operation.
func (s *Service) downloadFile(ctx context.Context, b *gotgbot.Bot, fileID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downloadTO)
	defer cancel()

	f, err := b.GetFileWithContext(ctx, fileID, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(b, nil), nil)
	if err != nil {
		return nil, fmt.Errorf("build file request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch file: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return body, nil
}
