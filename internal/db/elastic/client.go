package elastic

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/kailas-cloud/peerdex/internal/db"
)

// Compile-time check: Store implements db.SearchStore.
var _ db.SearchStore = (*Store)(nil)

// Config holds connection parameters for an Elasticsearch cluster.
type Config struct {
	Addrs              []string
	Username           string
	Password           string
	CACertPath         string
	InsecureSkipVerify bool
	// RequestTimeout bounds every call made through the store. Zero disables the bound.
	RequestTimeout time.Duration
	// StatusAttempts is how many times IndexStats is tried before giving up.
	StatusAttempts int
	// Transport replaces the default HTTP transport (tests).
	Transport http.RoundTripper
}

// Store implements db.SearchStore via the official go-elasticsearch client.
type Store struct {
	client         *elasticsearch.Client
	transport      *http.Transport
	requestTimeout time.Duration
	statusAttempts int
}

// NewStore creates an Elasticsearch store. No request is sent until first use.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	esCfg := elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	}

	var httpTransport *http.Transport
	if cfg.Transport != nil {
		esCfg.Transport = cfg.Transport
	} else {
		t, err := newHTTPTransport(cfg)
		if err != nil {
			return nil, err
		}
		httpTransport = t
		esCfg.Transport = t
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	attempts := cfg.StatusAttempts
	if attempts <= 0 {
		attempts = 1
	}

	return &Store{
		client:         client,
		transport:      httpTransport,
		requestTimeout: cfg.RequestTimeout,
		statusAttempts: attempts,
	}, nil
}

func newHTTPTransport(cfg Config) (*http.Transport, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local clusters with self-signed certs
	}
	if cfg.CACertPath != "" {
		pem, err := os.ReadFile(filepath.Clean(cfg.CACertPath))
		if err != nil {
			return nil, fmt.Errorf("read ca cert %s: %w", cfg.CACertPath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca cert %s contains no certificates", cfg.CACertPath)
		}
		tlsCfg.RootCAs = pool
	}
	t.TLSClientConfig = tlsCfg
	return t, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return decodeError(db.OpPing, res)
	}
	return nil
}

// Close releases idle connections held by the default transport.
func (s *Store) Close() {
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}
