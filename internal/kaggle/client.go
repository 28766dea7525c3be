package kaggle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	logx "lbwatch/pkg/logx"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "lbwatch/1"
	maxErrorBody     = 512
)

// Config configures the API client.
type Config struct {
	// BaseURL is the API root, e.g. "https://www.kaggle.com/api/v1".
	BaseURL     string
	Credentials Credentials
	Timeout     time.Duration
	// HTTPClient overrides the default client (tests). Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is a minimal Kaggle REST client covering the kernel listing.
type Client struct {
	base  string
	creds Credentials
	http  *http.Client
	log   logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("kaggle: base url is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("kaggle: base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{base: base, creds: cfg.Credentials, http: hc, log: log}, nil
}

// ListKernels calls GET /kernels/list and returns the entries in server order.
func (c *Client) ListKernels(ctx context.Context, opt ListOptions) ([]Kernel, error) {
	u := c.base + "/kernels/list?" + opt.query().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)
	if c.creds.Valid() {
		req.SetBasicAuth(c.creds.Username, c.creds.Key)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kaggle: list kernels: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug("kernels listed",
		logx.String("competition", opt.Competition),
		logx.Int("status", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out []Kernel
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("kaggle: decode kernels: %w", err)
	}
	return out, nil
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	set("competition", o.Competition)
	set("language", o.Language)
	set("kernelType", o.KernelType)
	set("outputType", o.OutputType)
	set("sortBy", o.SortBy)
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	return q
}
