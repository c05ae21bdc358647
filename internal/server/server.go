// Package server exposes the cadastre queries as a read-only JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catastro-cli/internal/catastro"
	"github.com/sells-group/catastro-cli/internal/model"
	"github.com/sells-group/catastro-cli/pkg/ovc"
)

// Querier is the query surface served over HTTP. *catastro.Catastro
// implements it.
type Querier interface {
	Provinces(ctx context.Context) ([]model.Province, error)
	Municipalities(ctx context.Context, province string) ([]model.Municipality, error)
	Streets(ctx context.Context, province, municipality string, filter catastro.StreetFilter) ([]model.Street, error)
	Property(ctx context.Context, addr model.Address) (*model.Property, error)
	PropertiesOnStreet(ctx context.Context, addr model.Address, maxNumber int) ([]model.Property, error)
	PropertiesNear(ctx context.Context, longitude, latitude float64, srs string) ([]model.NearbyProperty, error)
	PropertyByReference(ctx context.Context, province, municipality, reference string) ([]model.Property, error)
	ProvinceCodeIndex(ctx context.Context) (map[string]string, error)
	MunicipalityCodeIndex(ctx context.Context) (map[string]string, error)
	Locate(ctx context.Context, province, municipality, reference, srs string) (*model.Location, error)
}

var _ Querier = (*catastro.Catastro)(nil)

// maxScanNumbers caps street scans requested over HTTP.
const maxScanNumbers = 500

// Server routes API requests to a Querier.
type Server struct {
	q       Querier
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithRequestTimeout bounds the time spent on a single request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a server over q.
func New(q Querier, opts ...Option) *Server {
	s := &Server{q: q, timeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/provinces", func(r chi.Router) {
		r.Get("/", s.handleProvinces)
		r.Get("/{province}/municipalities", s.handleMunicipalities)
		r.Get("/{province}/municipalities/{municipality}/streets", s.handleStreets)
	})

	r.Route("/properties", func(r chi.Router) {
		r.Get("/", s.handleProperty)
		r.Get("/scan", s.handleStreetScan)
		r.Get("/near", s.handleNear)
		r.Get("/{reference}", s.handleByReference)
	})

	r.Get("/locations/{reference}", s.handleLocate)

	r.Route("/codes", func(r chi.Router) {
		r.Get("/provinces", s.handleProvinceCodes)
		r.Get("/municipalities", s.handleMunicipalityCodes)
	})

	return r
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	out, err := s.q.Provinces(r.Context())
	respond(w, out, err)
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	out, err := s.q.Municipalities(r.Context(), pathParam(r, "province"))
	respond(w, out, err)
}

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.q.Streets(r.Context(), pathParam(r, "province"), pathParam(r, "municipality"), catastro.StreetFilter{
		Type: q.Get("type"),
		Name: q.Get("name"),
	})
	respond(w, out, err)
}

func (s *Server) handleProperty(w http.ResponseWriter, r *http.Request) {
	addr, err := addressFromQuery(r.URL.Query(), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.q.Property(r.Context(), addr)
	if err == nil && p == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	respond(w, p, err)
}

func (s *Server) handleStreetScan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr, err := addressFromQuery(q, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxNumber, err := strconv.Atoi(q.Get("max"))
	if err != nil || maxNumber < 0 || maxNumber > maxScanNumbers {
		writeError(w, http.StatusBadRequest, "max must be an integer between 0 and "+strconv.Itoa(maxScanNumbers))
		return
	}

	out, err := s.q.PropertiesOnStreet(r.Context(), addr, maxNumber)
	respond(w, out, err)
}

func (s *Server) handleNear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	if errLon != nil || errLat != nil {
		writeError(w, http.StatusBadRequest, "lon and lat must be numbers")
		return
	}

	out, err := s.q.PropertiesNear(r.Context(), lon, lat, q.Get("srs"))
	respond(w, out, err)
}

func (s *Server) handleByReference(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.q.PropertyByReference(r.Context(), q.Get("province"), q.Get("municipality"), pathParam(r, "reference"))
	respond(w, out, err)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc, err := s.q.Locate(r.Context(), q.Get("province"), q.Get("municipality"), pathParam(r, "reference"), q.Get("srs"))
	if err != nil {
		respond(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, locationBody{Location: *loc, Geometry: loc.WKT()})
}

func (s *Server) handleProvinceCodes(w http.ResponseWriter, r *http.Request) {
	out, err := s.q.ProvinceCodeIndex(r.Context())
	respond(w, out, err)
}

func (s *Server) handleMunicipalityCodes(w http.ResponseWriter, r *http.Request) {
	out, err := s.q.MunicipalityCodeIndex(r.Context())
	respond(w, out, err)
}

type locationBody struct {
	model.Location
	Geometry string `json:"wkt"`
}

type errorBody struct {
	Error       string `json:"error"`
	ServiceCode string `json:"service_code,omitempty"`
}

// addressFromQuery reads province, town, street_type, street and, when
// withNumber is set, number.
func addressFromQuery(q url.Values, withNumber bool) (model.Address, error) {
	addr := model.Address{
		Province:   q.Get("province"),
		Town:       q.Get("town"),
		StreetType: q.Get("street_type"),
		StreetName: q.Get("street"),
	}
	if addr.Province == "" || addr.Town == "" || addr.StreetName == "" {
		return addr, eris.New("province, town and street are required")
	}
	if withNumber {
		n, err := strconv.Atoi(q.Get("number"))
		if err != nil || n < 0 {
			return addr, eris.New("number must be a non-negative integer")
		}
		addr.Number = n
	}
	return addr, nil
}

func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// respond writes v as JSON, or maps err to a status code.
func respond(w http.ResponseWriter, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	var svcErr *ovc.ServiceError
	switch {
	case errors.As(err, &svcErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: svcErr.Description, ServiceCode: svcErr.Code})
	case errors.Is(err, catastro.ErrUnexpectedResponse):
		writeError(w, http.StatusBadGateway, "unexpected response from cadastre service")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "cadastre service timed out")
	default:
		zap.L().Error("server: query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
