package inverter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config holds the connection settings for one inverter.
type Config struct {
	IP       string
	User     string
	Password string
	Timeout  time.Duration // per-request budget

	// Request rate towards the device. The embedded web server handles
	// roughly one request at a time; Burst should cover one retry run.
	RequestsPerSecond float64
	Burst             int
}

// Client fetches the raw statistics page from an inverter's web server.
type Client struct {
	baseURL string
	addr    string
	user    string
	pass    string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

func NewClient(cfg Config, logger *logrus.Entry) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 3
	}

	// The device serves on port 80 unless the address says otherwise.
	addr := cfg.IP
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "80")
	}

	return &Client{
		baseURL: fmt.Sprintf("http://%s", addr),
		addr:    addr,
		user:    cfg.User,
		pass:    cfg.Password,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// Fetch retrieves the raw status page. The returned error is a *FetchError
// except when ctx itself was canceled.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/status.html"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformedTransport, err: err}
	}
	req.SetBasicAuth(c.user, c.pass)

	c.logger.WithField("url", url).Debug("Fetching inverter status page")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"status":         resp.StatusCode,
		"content_length": resp.ContentLength,
	}).Debug("Inverter responded")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &FetchError{Kind: FetchAuthRejected, Status: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Kind: FetchMalformedTransport, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchMalformedTransport, err: err}
	}
	return body, nil
}

func (c *Client) classify(err error) error {
	// A canceled parent context is shutdown, not a device failure.
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, err: err}
	}

	// Dial and DNS failures: the device is asleep or gone.
	return &FetchError{Kind: FetchUnreachable, err: err}
}

// Reachable probes the device's TCP port. The inverter powers down when
// panel output is too low, so false here is a normal overnight state.
func (c *Client) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
