package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	apperrors "esgboard/internal/errors"
	"esgboard/pkg/contracts/domain"
)

// fetchRemote downloads a source file and parses it by URL path extension.
// The whole fetch is bounded by the configured timeout; expiry, transport
// failures, and non-2xx responses all surface as network errors.
func (l *Loader) fetchRemote(ctx context.Context, rawURL string) (*LoadResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid fetch URL %q", rawURL))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("unsupported URL scheme %q; use http or https", parsed.Scheme))
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	var parse func([]byte, domain.SourceKind) (*LoadResult, error)
	switch ext {
	case ".csv":
		parse = l.parseDelimited
	case ".xlsx", ".xls":
		parse = l.parseWorkbook
	default:
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("unsupported remote file format %q; use CSV or Excel", ext))
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to build fetch request", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("fetch %s failed", rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("fetch %s returned status %d", rawURL, resp.StatusCode), nil)
	}

	limit := l.cfg.MaxFetchBytes
	if limit <= 0 {
		limit = 1 << 30
	}
	if resp.ContentLength > limit {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("remote file is %d bytes, over the %d byte limit", resp.ContentLength, limit))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("failed to read response from %s", rawURL), err)
	}
	if int64(len(body)) > limit {
		return nil, apperrors.NewAppValidationError(
			fmt.Sprintf("remote file exceeds the %d byte limit", limit))
	}

	return parse(body, domain.SourceRemoteFetch)
}
