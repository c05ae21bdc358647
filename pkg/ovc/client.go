// Package ovc queries the Spanish cadastre's public OVC web services and
// decodes their XML answers into generic Trees.
package ovc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/catastro-cli/internal/resilience"
)

// DefaultBaseURL is the root of the OVC location services.
const DefaultBaseURL = "http://ovc.catastro.meh.es/ovcservweb/OVCSWLocalizacionRC"

const (
	callejeroService   = "OVCCallejero.asmx"
	coordenadasService = "OVCCoordenadas.asmx"
)

// DefaultSRS is the spatial reference used when none is given.
const DefaultSRS = "EPSG:4326"

// Client issues the OVC queries. Every method returns the decoded response
// as-is; interpreting it is up to the caller.
type Client interface {
	// Provinces lists every province (ConsultaProvincia).
	Provinces(ctx context.Context) (Tree, error)

	// Municipalities lists the municipalities of a province, optionally
	// filtered by municipality name (ConsultaMunicipio).
	Municipalities(ctx context.Context, province, municipality string) (Tree, error)

	// Streets lists the streets of a municipality (ConsultaVia).
	Streets(ctx context.Context, q StreetQuery) (Tree, error)

	// PropertyByLocation looks up the property at a street address (Consulta_DNPLOC).
	PropertyByLocation(ctx context.Context, q LocationQuery) (Tree, error)

	// PropertyByReference looks up a property by cadastral reference (Consulta_DNPRC).
	PropertyByReference(ctx context.Context, province, municipality, reference string) (Tree, error)

	// ReferencesNear lists the parcels around a coordinate (Consulta_RCCOOR_Distancia).
	ReferencesNear(ctx context.Context, srs string, x, y float64) (Tree, error)

	// ReferenceCoordinates resolves a cadastral reference to a point (Consulta_CPMRC).
	ReferenceCoordinates(ctx context.Context, province, municipality, srs, reference string) (Tree, error)
}

// StreetQuery selects streets within a municipality. Type and Name are
// passed through verbatim; empty means no filter.
type StreetQuery struct {
	Province     string
	Municipality string
	Type         string
	Name         string
}

// LocationQuery identifies a property by address.
type LocationQuery struct {
	Province     string
	Municipality string
	StreetType   string
	StreetName   string
	Number       int
	Block        string
	Stair        string
	Floor        string
	Door         string
}

// Cache stores raw responses keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Option configures the client.
type Option func(*client)

// WithBaseURL points the client at another OVC root.
func WithBaseURL(base string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

// WithCache enables the raw response cache.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
	cache      Cache
	cacheTTL   time.Duration
}

// NewClient creates an OVC Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		userAgent:  "catastro-cli/1.0",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Provinces(ctx context.Context) (Tree, error) {
	return c.query(ctx, callejeroService, "ConsultaProvincia", url.Values{})
}

func (c *client) Municipalities(ctx context.Context, province, municipality string) (Tree, error) {
	return c.query(ctx, callejeroService, "ConsultaMunicipio", url.Values{
		"Provincia": {province},
		"Municipio": {municipality},
	})
}

func (c *client) Streets(ctx context.Context, q StreetQuery) (Tree, error) {
	return c.query(ctx, callejeroService, "ConsultaVia", url.Values{
		"Provincia": {q.Province},
		"Municipio": {q.Municipality},
		"TipoVia":   {q.Type},
		"NombreVia": {q.Name},
	})
}

func (c *client) PropertyByLocation(ctx context.Context, q LocationQuery) (Tree, error) {
	return c.query(ctx, callejeroService, "Consulta_DNPLOC", url.Values{
		"Provincia": {q.Province},
		"Municipio": {q.Municipality},
		"Sigla":     {q.StreetType},
		"Calle":     {q.StreetName},
		"Numero":    {strconv.Itoa(q.Number)},
		"Bloque":    {q.Block},
		"Escalera":  {q.Stair},
		"Planta":    {q.Floor},
		"Puerta":    {q.Door},
	})
}

func (c *client) PropertyByReference(ctx context.Context, province, municipality, reference string) (Tree, error) {
	return c.query(ctx, callejeroService, "Consulta_DNPRC", url.Values{
		"Provincia": {province},
		"Municipio": {municipality},
		"RC":        {reference},
	})
}

func (c *client) ReferencesNear(ctx context.Context, srs string, x, y float64) (Tree, error) {
	if srs == "" {
		srs = DefaultSRS
	}
	return c.query(ctx, coordenadasService, "Consulta_RCCOOR_Distancia", url.Values{
		"SRS":          {srs},
		"Coordenada_X": {formatCoord(x)},
		"Coordenada_Y": {formatCoord(y)},
	})
}

func (c *client) ReferenceCoordinates(ctx context.Context, province, municipality, srs, reference string) (Tree, error) {
	if srs == "" {
		srs = DefaultSRS
	}
	return c.query(ctx, coordenadasService, "Consulta_CPMRC", url.Values{
		"Provincia": {province},
		"Municipio": {municipality},
		"SRS":       {srs},
		"RC":        {reference},
	})
}

// query fetches (or reads from cache) one operation and decodes it.
func (c *client) query(ctx context.Context, service, operation string, params url.Values) (Tree, error) {
	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, service, operation, params.Encode())
	key := cacheKey(reqURL)

	if body, ok := c.cached(ctx, key); ok {
		return decode(operation, body)
	}

	retry := c.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetries(operation)
	}
	body, err := resilience.Do(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ovc: %s", operation)
	}

	tree, err := decode(operation, body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			zap.L().Warn("ovc: cache store failed", zap.String("operation", operation), zap.Error(err))
		}
	}
	return tree, nil
}

func (c *client) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	zap.L().Debug("ovc request",
		zap.String("url", reqURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "read body"), 0)
	}
	return body, nil
}

func (c *client) cached(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		zap.L().Warn("ovc: cache lookup failed", zap.Error(err))
		return nil, false
	}
	return body, ok
}

func decode(operation string, body []byte) (Tree, error) {
	tree, err := DecodeTree(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "ovc: %s: decode response", operation)
	}
	return tree, nil
}

// cacheKey returns the SHA-256 hex digest of the request URL.
func cacheKey(reqURL string) string {
	h := sha256.Sum256([]byte(reqURL))
	return fmt.Sprintf("%x", h)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
