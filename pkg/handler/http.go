package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/foomo/hbkbrowser/client"
	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/pkg/session"
	"github.com/foomo/hbkbrowser/requests"
	"github.com/foomo/hbkbrowser/responses"
	"github.com/foomo/hbkbrowser/toc"
	httputils "github.com/foomo/keel/utils/net/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultSearchLimit = 20

var errBadRequest = errors.New("bad request")

type (
	// Backend help backend calls passed through to the browser
	Backend interface {
		Search(ctx context.Context, query string, limit int, locale string) (*responses.Search, error)
		AppInfo(ctx context.Context) (*responses.AppInfo, error)
	}
	HTTP struct {
		l              *zap.Logger
		basePath       string
		registry       *session.Registry
		backend        Backend
		allowedOrigins []string
		router         chi.Router
	}
	HTTPOption func(*HTTP)
	// sessionReply a session as seen by the browser
	sessionReply struct {
		ID           string           `json:"id"`
		SidebarWidth int              `json:"sidebarWidth"`
		State        navigation.State `json:"state"`
	}
	toggleReply struct {
		Expanded bool `json:"expanded"`
		*sessionReply
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewHTTP returns the gateway between browser and help backend
func NewHTTP(l *zap.Logger, registry *session.Registry, backend Backend, opts ...HTTPOption) http.Handler {
	inst := &HTTP{
		l:              l.Named("http"),
		basePath:       "/hbkbrowser",
		registry:       registry,
		backend:        backend,
		allowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
	for _, opt := range opts {
		opt(inst)
	}
	inst.router = inst.buildRouter()
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithBasePath(v string) HTTPOption {
	return func(o *HTTP) {
		o.basePath = "/" + strings.Trim(v, "/")
	}
}

func WithAllowedOrigins(v ...string) HTTPOption {
	return func(o *HTTP) {
		o.allowedOrigins = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (h *HTTP) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
		MaxAge:         300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, responses.NewErrorf(http.StatusNotFound, responses.ErrorCodeUnknownRoute, "unknown route: %s %s", r.Method, r.URL.Path))
	})

	r.Route(h.basePath, func(r chi.Router) {
		r.Post("/sessions", h.handle(RouteCreateSession, h.createSession))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.handle(RouteGetSession, h.getSession))
			r.Delete("/", h.handle(RouteDeleteSession, h.deleteSession))
			r.Post("/link", h.handle(RouteFollowLink, h.followLink))
			r.Post("/location", h.handle(RouteNavigate, h.navigate))
			r.Post("/toggle", h.handle(RouteToggle, h.toggle))
			r.Post("/locale", h.handle(RouteSetLocale, h.setLocale))
			r.Put("/sidebar", h.handle(RouteSetSidebar, h.setSidebar))
			r.Get("/content", h.handle(RouteGetContent, h.getContent))
			r.Post("/content/retry", h.handle(RouteRetry, h.retry))
		})
		r.Get("/search", h.handle(RouteSearch, h.search))
		r.Get("/locales", h.handle(RouteGetLocales, h.locales))
	})
	return r
}

// handle runs fn, records metrics and writes its reply or error
func (h *HTTP) handle(route Route, fn func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reply, err := fn(r)
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.ServiceRequestCounter.WithLabelValues(string(route), status).Inc()
		metrics.ServiceRequestDuration.WithLabelValues(string(route), status).Observe(time.Since(start).Seconds())

		if err != nil {
			h.writeError(w, r, toError(err))
			return
		}
		h.writeReply(w, r, http.StatusOK, reply)
	}
}

func (h *HTTP) createSession(r *http.Request) (interface{}, error) {
	req := &requests.NewSession{}
	if err := decode(r, req); err != nil {
		return nil, err
	}
	s, err := h.registry.Create(r.Context(), req.Locale)
	if err != nil {
		return nil, err
	}
	return newSessionReply(s), nil
}

func (h *HTTP) getSession(r *http.Request) (interface{}, error) {
	s, err := h.session(r)
	if err != nil {
		return nil, err
	}
	return newSessionReply(s), nil
}

func (h *HTTP) deleteSession(r *http.Request) (interface{}, error) {
	if err := h.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return nil, err
	}
	return true, nil
}

func (h *HTTP) followLink(r *http.Request) (interface{}, error) {
	req := &requests.Link{}
	return h.withSession(r, req, func(s *session.Session) error {
		return s.FollowLink(r.Context(), req.Href)
	})
}

func (h *HTTP) navigate(r *http.Request) (interface{}, error) {
	req := &requests.Location{}
	return h.withSession(r, req, func(s *session.Session) error {
		loc, err := navigation.ParseLocation(req.URL)
		if err != nil {
			return errors.Wrap(errBadRequest, err.Error())
		}
		return s.Navigate(r.Context(), loc)
	})
}

func (h *HTTP) toggle(r *http.Request) (interface{}, error) {
	var (
		req      = &requests.Toggle{}
		expanded bool
	)
	reply, err := h.withSession(r, req, func(s *session.Session) error {
		id := toc.ID(req.ID)
		if _, _, ok := id.Split(); !ok {
			return errors.Wrapf(errBadRequest, "invalid node id %q", req.ID)
		}
		var err error
		expanded, err = s.Toggle(r.Context(), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &toggleReply{Expanded: expanded, sessionReply: reply.(*sessionReply)}, nil //nolint:forcetypeassert
}

func (h *HTTP) setLocale(r *http.Request) (interface{}, error) {
	req := &requests.Locale{}
	return h.withSession(r, req, func(s *session.Session) error {
		return s.SetLocale(req.Locale)
	})
}

func (h *HTTP) setSidebar(r *http.Request) (interface{}, error) {
	req := &requests.Sidebar{}
	return h.withSession(r, req, func(s *session.Session) error {
		s.SetSidebarWidth(req.Width)
		return nil
	})
}

func (h *HTTP) getContent(r *http.Request) (interface{}, error) {
	s, err := h.session(r)
	if err != nil {
		return nil, err
	}
	return s.LoadContent(r.Context())
}

func (h *HTTP) retry(r *http.Request) (interface{}, error) {
	s, err := h.session(r)
	if err != nil {
		return nil, err
	}
	if err := s.Retry(r.Context()); err != nil {
		return nil, err
	}
	return newSessionReply(s), nil
}

func (h *HTTP) search(r *http.Request) (interface{}, error) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		return nil, errors.Wrap(errBadRequest, "missing query")
	}
	limit := defaultSearchLimit
	if v := q.Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return nil, errors.Wrapf(errBadRequest, "invalid limit %q", v)
		}
		limit = l
	}
	locale := q.Get("locale")
	if locale != "" {
		canonical, err := navigation.CanonicalLocale(locale)
		if err != nil {
			return nil, err
		}
		locale = canonical
	}
	return h.backend.Search(r.Context(), query, limit, locale)
}

func (h *HTTP) locales(r *http.Request) (interface{}, error) {
	return h.backend.AppInfo(r.Context())
}

func (h *HTTP) session(r *http.Request) (*session.Session, error) {
	return h.registry.Get(r.Context(), chi.URLParam(r, "id"))
}

// withSession decodes req, runs fn on the addressed session and replies with its state
func (h *HTTP) withSession(r *http.Request, req interface{}, fn func(s *session.Session) error) (interface{}, error) {
	if err := decode(r, req); err != nil {
		return nil, err
	}
	s, err := h.session(r)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		if navigation.IsCancellation(err) {
			h.l.Debug("request superseded", zap.String("session", s.ID()), zap.Error(err))
		}
		return nil, err
	}
	return newSessionReply(s), nil
}

func (h *HTTP) writeReply(w http.ResponseWriter, r *http.Request, status int, reply interface{}) {
	bytes, err := json.Marshal(map[string]interface{}{
		"reply": reply,
	})
	if err != nil {
		httputils.ServerError(h.l, w, r, http.StatusInternalServerError, errors.Wrap(err, "could not encode reply"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(bytes)
}

func (h *HTTP) writeError(w http.ResponseWriter, r *http.Request, e *responses.Error) {
	if e.Status >= http.StatusInternalServerError {
		h.l.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(e))
	}
	h.writeReply(w, r, e.Status, e)
}

func newSessionReply(s *session.Session) *sessionReply {
	return &sessionReply{
		ID:           s.ID(),
		SidebarWidth: s.SidebarWidth(),
		State:        s.State(),
	}
}

func decode(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(errBadRequest, "could not read incoming json: "+err.Error())
	}
	return nil
}

// toError maps an error onto its reply
func toError(err error) *responses.Error {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, resolve.ErrNotFound),
		client.IsNotFound(err):
		return responses.NewErrorf(http.StatusNotFound, responses.ErrorCodeNotFound, "%s", err.Error())
	case navigation.IsCancellation(err):
		return responses.NewErrorf(http.StatusConflict, responses.ErrorCodeSuperseded, "%s", err.Error())
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidID),
		errors.Is(err, navigation.ErrInvalidLocale),
		errors.Is(err, navigation.ErrNotNavigable),
		errors.Is(err, navigation.ErrNoPage):
		return responses.NewErrorf(http.StatusBadRequest, responses.ErrorCodeBadRequest, "%s", err.Error())
	case client.IsTransport(err):
		return responses.NewErrorf(http.StatusBadGateway, responses.ErrorCodeBackend, "%s", err.Error())
	default:
		return responses.NewErrorf(http.StatusInternalServerError, responses.ErrorCodeInternal, "internal error %s", err.Error())
	}
}
