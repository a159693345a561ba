package filedownhttp

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/filedown/internal/utils"
)

type ProbeResult struct {
	Size           int64
	RangesDisabled bool // server sent "Accept-Ranges: none"
	FileName       string
}

// Probe issues a single HEAD request and returns the resource length. It never retries.
func Probe(ctx context.Context, client utils.HTTPDoer, link string) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: error creating request: %v", utils.ErrProbe, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("%w: %v", utils.ErrProbe, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ProbeResult{}, fmt.Errorf("%w: server returned status %d", utils.ErrProbe, resp.StatusCode)
	}

	result := ProbeResult{
		RangesDisabled: strings.EqualFold(strings.TrimSpace(resp.Header.Get("Accept-Ranges")), "none"),
		FileName:       fileNameFromDisposition(resp.Header.Get("Content-Disposition")),
	}
	contentLength := resp.Header.Get("Content-Length")
	if contentLength == "" {
		return result, fmt.Errorf("%w: no Content-Length header", utils.ErrUnknownLength)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(contentLength), 10, 64)
	if err != nil {
		return result, fmt.Errorf("%w: invalid Content-Length %q", utils.ErrUnknownLength, contentLength)
	}
	if size <= 0 {
		return result, fmt.Errorf("%w: server reported %d bytes", utils.ErrUnknownLength, size)
	}
	result.Size = size
	log.Debug().Str("op", "http/probe").Str("url", link).Int64("size", size).Bool("rangesDisabled", result.RangesDisabled).Msg("Probe complete")
	return result, nil
}

// resolveRedirects follows Location headers with HEAD requests so chunk requests can
// target the final URL directly.
func resolveRedirects(ctx context.Context, client utils.HTTPDoer, link string) (string, error) {
	for hop := 0; hop <= utils.MaxRedirects; hop++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
		if err != nil {
			return "", fmt.Errorf("%w: error creating request: %v", utils.ErrProbe, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("%w: error checking URL: %v", utils.ErrProbe, err)
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			location := resp.Header.Get("Location")
			if location == "" {
				return "", fmt.Errorf("%w: redirect %d without Location", utils.ErrProbe, resp.StatusCode)
			}
			base, err := url.Parse(link)
			if err != nil {
				return "", fmt.Errorf("%w: invalid URL %q", utils.ErrProbe, link)
			}
			next, err := base.Parse(location)
			if err != nil {
				return "", fmt.Errorf("%w: invalid redirect location %q", utils.ErrProbe, location)
			}
			log.Debug().Str("op", "http/probe").Str("from", link).Str("to", next.String()).Msg("Following redirect")
			link = next.String()
		case resp.StatusCode == http.StatusNotFound:
			return "", fmt.Errorf("%w: URL not found (404)", utils.ErrProbe)
		case resp.StatusCode >= 400:
			return "", fmt.Errorf("%w: server returned error: %d", utils.ErrProbe, resp.StatusCode)
		default:
			return link, nil
		}
	}
	return "", fmt.Errorf("%w: stopped after %d redirects", utils.ErrProbe, utils.MaxRedirects)
}

func fileNameFromDisposition(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn, ok := params["filename"]; ok && fn != "" {
		return utils.SanitizeFilename(fn)
	}
	if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
		unescaped, _ := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		return utils.SanitizeFilename(unescaped)
	}
	return ""
}
