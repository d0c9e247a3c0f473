package redlion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-gota/gota/dataframe"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/dataprocessing"
	apperrors "github.com/bstolzenburg/Ag-Methane-Programs/internal/errors"
)

// Client talks to one Red Lion data station's web file server
type Client struct {
	location    config.ServerLocation
	httpClient  *http.Client
	limiter     *rate.Limiter
	userAgent   string
	concurrency int
	logger      *slog.Logger
}

// NewClient creates a client for location. Requests share a rate limiter so the
// station, which is usually on a cellular link, is never flooded.
func NewClient(location config.ServerLocation, cfg config.HTTPConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		location:    location,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, burst),
		userAgent:   cfg.UserAgent,
		concurrency: concurrency,
		logger:      logger,
	}
}

// get performs an authenticated GET and returns the body of a 200 response
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewTransportError(url, err)
	}
	req.SetBasicAuth(c.location.Username, c.location.Password)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, apperrors.NewStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewTransportError(url, err)
	}
	return body, nil
}

// ListCSVLinks scrapes the station index page for .CSV files and returns
// absolute links in page order
func (c *Client) ListCSVLinks(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.location.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse index page", err).WithContext("url", c.location.URL)
	}

	base := c.location.LinkBase()
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasSuffix(href, csvExt) {
			return
		}
		links = append(links, BuildLink(base, href))
	})

	c.logger.Debug("Index scraped",
		slog.String("url", c.location.URL),
		slog.Int("links", len(links)))
	return links, nil
}

// Download fetches one weekly CSV and returns it oldest row first
func (c *Client) Download(ctx context.Context, link string) (dataframe.DataFrame, error) {
	body, err := c.get(ctx, link)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df, err := dataprocessing.ReadCSV(bytes.NewReader(body), dataprocessing.ReadOptions{Reverse: true})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("%s: %w", link, err)
	}
	return df, nil
}

// FetchResult holds the tables downloaded by FetchAll
type FetchResult struct {
	// Frames are the successful downloads in link order
	Frames []dataframe.DataFrame
	// Links are the links that produced Frames, index aligned
	Links []string
	// Failed maps failed links to their error
	Failed map[string]error
}

// FetchAll downloads links with bounded concurrency. Individual failures are
// logged and skipped; only context cancellation stops the run.
func (c *Client) FetchAll(ctx context.Context, links []string) (*FetchResult, error) {
	frames := make([]dataframe.DataFrame, len(links))
	errs := make([]error, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, link := range links {
		g.Go(func() error {
			c.logger.Info("Downloading weekly log", slog.String("week", WeekLabel(link)))
			df, err := c.Download(gctx, link)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
				c.logger.Warn("Weekly log download failed, skipping",
					slog.String("link", link),
					slog.String("error", err.Error()))
				return nil
			}
			frames[i] = df
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &FetchResult{Failed: make(map[string]error)}
	for i, link := range links {
		if errs[i] != nil {
			result.Failed[link] = errs[i]
			continue
		}
		result.Frames = append(result.Frames, frames[i])
		result.Links = append(result.Links, link)
	}
	return result, nil
}
