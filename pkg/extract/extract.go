// Package extract turns uploaded files and web pages into plain text for ingestion.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"ai-tutor-be/internal/pkg/apperror"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/pkg/utils"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/html"
)

// AllowedTypes are the upload MIME types accepted by the knowledge API.
var AllowedTypes = []string{
	"text/plain",
	"text/markdown",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

func Allowed(mimeType string) bool {
	return slices.Contains(AllowedTypes, MediaType(mimeType))
}

// IsNative reports whether mimeType is read directly without Tika.
func IsNative(mimeType string) bool {
	return mimeType == "text/plain" || mimeType == "text/markdown"
}

type Config struct {
	TikaURL      string
	FetchTimeout time.Duration
	MaxBytes     int
}

type Extractor struct {
	tikaURL  string
	maxBytes int
	client   *http.Client
	logger   logger.ILogger
}

func New(cfg Config, log logger.ILogger) *Extractor {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Extractor{
		tikaURL:  strings.TrimRight(cfg.TikaURL, "/"),
		maxBytes: cfg.MaxBytes,
		client:   &http.Client{Timeout: cfg.FetchTimeout},
		logger:   log,
	}
}

// MediaType strips parameters such as charset from a Content-Type value.
func MediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// FromUpload returns the text content of an uploaded file.
func (e *Extractor) FromUpload(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	mimeType = MediaType(mimeType)
	if !Allowed(mimeType) {
		return "", apperror.Newf(apperror.KindValidation, "unsupported file type %q", mimeType)
	}
	if len(data) == 0 {
		return "", apperror.New(apperror.KindValidation, "file is empty")
	}

	if IsNative(mimeType) {
		if !utf8.Valid(data) {
			return "", apperror.New(apperror.KindValidation, "text file is not valid UTF-8")
		}
		return string(data), nil
	}

	if e.tikaURL == "" {
		return "", apperror.Newf(apperror.KindValidation, "%s files cannot be processed on this server", mimeType)
	}
	text, err := e.tika(ctx, mimeType, data)
	if err != nil {
		e.logger.Error("EXTRACT", "Tika extraction failed", map[string]interface{}{
			"filename": filename,
			"mime":     mimeType,
			"error":    err.Error(),
		})
		return "", apperror.Wrap(apperror.KindParse, err, "could not extract text from "+filename)
	}
	return text, nil
}

func (e *Extractor) tika(ctx context.Context, mimeType string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.tikaURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build tika request")
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Accept", "text/plain")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "tika request failed", goerr.V("url", e.tikaURL))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(e.maxBytes)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to read tika response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("tika returned an error", goerr.V("status", resp.StatusCode), goerr.V("body", string(body)))
	}
	return string(body), nil
}

// Page is the text of a fetched web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// FromURL fetches rawURL and extracts its readable text. HTML is stripped of
// markup, scripts and styles; text/plain is returned as is.
func (e *Extractor) FromURL(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperror.Newf(apperror.KindValidation, "invalid url %q", rawURL)
	}

	page, err := e.fetch(ctx, u.String())
	if err != nil {
		e.logger.Warn("EXTRACT", "URL fetch failed", map[string]interface{}{
			"url":   u.String(),
			"error": err.Error(),
		})
		return nil, apperror.Wrap(apperror.KindValidation, err, "could not fetch "+u.String())
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, apperror.Newf(apperror.KindValidation, "no readable text at %s", u.String())
	}
	return page, nil
}

func (e *Extractor) fetch(ctx context.Context, target string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", target))
	}
	req.Header.Set("User-Agent", "ai-tutor-be/1.0")
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V("url", target))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("unexpected status", goerr.V("url", target), goerr.V("status", resp.StatusCode))
	}

	body := io.LimitReader(resp.Body, int64(e.maxBytes))
	mediaType := MediaType(resp.Header.Get("Content-Type"))
	switch {
	case mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml":
		title, text, err := HTMLText(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse html", goerr.V("url", target))
		}
		if title == "" {
			title = target
		}
		return &Page{URL: target, Title: title, Text: text}, nil
	case strings.HasPrefix(mediaType, "text/"):
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read body", goerr.V("url", target))
		}
		return &Page{URL: target, Title: target, Text: string(raw)}, nil
	default:
		return nil, goerr.New(fmt.Sprintf("unsupported content type %s", mediaType), goerr.V("url", target))
	}
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "iframe": true, "nav": true, "footer": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
}

// HTMLText returns the document title and visible text of an HTML page.
func HTMLText(r io.Reader) (string, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", err
	}

	var title string
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" {
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				b.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, utils.CollapseWhitespace(b.String()), nil
}
