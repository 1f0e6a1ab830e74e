package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tourloop/config"
	"tourloop/types"
)

// FetchError is the typed I/O failure returned when an image reference
// cannot be resolved to bytes. Callers treat it as a generation-attempt
// failure, never a crash.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ResolverConfig configures a Resolver. Zero values fall back to defaults.
type ResolverConfig struct {
	HTTPClient *http.Client
	// ProxyBaseURL is the backend exposing GET /api/proxy-image?url=
	ProxyBaseURL string
	// ProxyHosts are hostnames retried through the proxy on fetch failure
	ProxyHosts []string
	// S3 enables s3://bucket/key references when set
	S3 *S3
	// Handles resolves transient in-memory references when set
	Handles *HandleStore
}

// Resolver converts an image reference into raw bytes suitable for upload.
type Resolver struct {
	httpClient   *http.Client
	proxyBaseURL string
	proxyHosts   []string
	s3           *S3
	handles      *HandleStore
}

// NewResolver creates a resolver with the given configuration.
func NewResolver(cfg ResolverConfig) *Resolver {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	hosts := cfg.ProxyHosts
	if hosts == nil {
		hosts = config.ProxyImageHosts
	}
	return &Resolver{
		httpClient:   client,
		proxyBaseURL: strings.TrimRight(cfg.ProxyBaseURL, "/"),
		proxyHosts:   hosts,
		s3:           cfg.S3,
		handles:      cfg.Handles,
	}
}

// Resolve returns the raw bytes behind an image reference.
func (r *Resolver) Resolve(ctx context.Context, ref types.ImageRef) ([]byte, error) {
	switch ref.Kind {
	case types.ImageEmbedded:
		if len(ref.Data) > 0 {
			return ref.Data, nil
		}
		if strings.HasPrefix(ref.URL, "data:") {
			return decodeDataURI(ref.URL)
		}
		return nil, &FetchError{URL: ref.URL, Err: fmt.Errorf("embedded reference has no payload")}
	case types.ImageHandle:
		if r.handles == nil {
			return nil, &FetchError{URL: ref.HandleID, Err: fmt.Errorf("no handle store configured")}
		}
		data, ok := r.handles.Get(ref.HandleID)
		if !ok {
			return nil, &FetchError{URL: ref.HandleID, Err: fmt.Errorf("unknown handle")}
		}
		return data, nil
	case types.ImageStored:
		return r.resolveStored(ctx, ref.URL)
	case types.ImageRemote:
		return r.resolveRemote(ctx, ref.URL)
	default:
		return nil, &FetchError{URL: ref.URL, Err: fmt.Errorf("unsupported reference kind %q", ref.Kind)}
	}
}

func (r *Resolver) resolveStored(ctx context.Context, addr string) ([]byte, error) {
	if r.s3 == nil {
		return nil, &FetchError{URL: addr, Err: fmt.Errorf("no asset storage configured")}
	}
	bucket, key, err := splitS3URL(addr)
	if err != nil {
		return nil, &FetchError{URL: addr, Err: err}
	}
	body, err := r.s3.Get(ctx, bucket, key)
	if err != nil {
		return nil, &FetchError{URL: addr, Err: err}
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{URL: addr, Err: err}
	}
	return data, nil
}

// resolveRemote fetches an http(s) address directly and, for known CDN
// hosts, retries once through the same-origin proxy on failure.
func (r *Resolver) resolveRemote(ctx context.Context, addr string) ([]byte, error) {
	data, err := r.fetch(ctx, addr)
	if err == nil {
		return data, nil
	}

	if r.proxyBaseURL != "" && r.shouldProxy(addr) {
		proxied := fmt.Sprintf("%s/api/proxy-image?url=%s", r.proxyBaseURL, url.QueryEscape(addr))
		if data, perr := r.fetch(ctx, proxied); perr == nil {
			return data, nil
		}
	}
	return nil, &FetchError{URL: addr, Err: err}
}

func (r *Resolver) fetch(ctx context.Context, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (r *Resolver) shouldProxy(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, known := range r.proxyHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}
	return false
}

// decodeDataURI decodes a data:<mime>;base64,<payload> URI.
func decodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, &FetchError{URL: "data:", Err: fmt.Errorf("malformed data URI")}
	}
	meta, payload := uri[:idx], uri[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &FetchError{URL: "data:", Err: err}
	}
	return data, nil
}

// splitS3URL parses s3://bucket/key into its parts.
func splitS3URL(addr string) (bucket, key string, err error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" || len(u.Path) < 2 {
		return "", "", fmt.Errorf("malformed s3 address %q", addr)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
