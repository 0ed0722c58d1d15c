package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"killstats/internal/constants"
	"killstats/internal/controller"
	"killstats/internal/domain"
	"killstats/internal/service"
	"killstats/internal/view"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type DashboardServer struct {
	stats    *service.StatsService
	sessions *SessionStore
	logger   zerolog.Logger
}

func NewDashboardServer(stats *service.StatsService, sessions *SessionStore, logger zerolog.Logger) *DashboardServer {
	return &DashboardServer{stats: stats, sessions: sessions, logger: logger}
}

// Router wires every dashboard route. Paths are scoped by entity:
// /killboard/{corporation|alliance}/{id}/...
func (s *DashboardServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	sub := r.PathPrefix("/killboard/{kind:corporation|alliance}/{id:[0-9]+}").Subrouter()
	sub.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	sub.HandleFunc("/month/{month:[0-9]+}/year/{year:[0-9]+}/", s.handlePeriodPage).Methods(http.MethodGet)
	sub.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	sub.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	sub.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	sub.HandleFunc("/tab/{tab}", s.handleTab).Methods(http.MethodPost)
	sub.HandleFunc("/table/{table:kills|losses}", s.handleTable).Methods(http.MethodGet)
	sub.HandleFunc("/modal/top10/", s.handleTop10).Methods(http.MethodGet)
	sub.HandleFunc("/modal/top/{category:[a-z0-9_]+}/", s.handleTopCategory).Methods(http.MethodGet)
	sub.HandleFunc("/ws", s.handleWebsocket)

	return r
}

func entityFromVars(vars map[string]string) (domain.Entity, error) {
	kind, err := domain.ParseEntityKind(vars["kind"])
	if err != nil {
		return domain.Entity{}, err
	}
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return domain.Entity{}, err
	}
	e := domain.Entity{Kind: kind, ID: id}
	return e, e.Validate()
}

// sessionFor resolves the viewer's controller for the entity in the path.
// fresh is true when nothing has been loaded into it yet.
func (s *DashboardServer) sessionFor(w http.ResponseWriter, r *http.Request) (ctrl *controller.Controller, fresh, ok bool) {
	entity, err := entityFromVars(mux.Vars(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false, false
	}
	ctrl, fresh, err = s.sessions.Get(SessionID(w, r), entity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false, false
	}
	return ctrl, fresh, true
}

// controllerFor resolves the viewer's controller and loads its first period
// when the session is new.
func (s *DashboardServer) controllerFor(w http.ResponseWriter, r *http.Request) (*controller.Controller, bool) {
	ctrl, fresh, ok := s.sessionFor(w, r)
	if !ok {
		return nil, false
	}
	if fresh {
		ctx, cancel := detached(r.Context())
		defer cancel()
		if err := ctrl.Start(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return nil, false
		}
	}
	return ctrl, true
}

// detached bounds a refresh by RequestTimeout but not by the viewer's
// connection: the result is stored in the session and outlives the request.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), constants.RequestTimeout)
}

func (s *DashboardServer) handlePage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	s.renderPage(w, r, ctrl.View())
}

// handlePeriodPage loads the period named in the path. A new session goes
// straight to that period without loading the current month first.
func (s *DashboardServer) handlePeriodPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	month, _ := strconv.Atoi(vars["month"])
	year, _ := strconv.Atoi(vars["year"])
	period := domain.Period{Month: month, Year: year}
	if err := period.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctrl, _, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	ctx, cancel := detached(r.Context())
	defer cancel()
	if err := ctrl.Refresh(ctx, period); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.renderPage(w, r, ctrl.View())
}

func (s *DashboardServer) renderPage(w http.ResponseWriter, r *http.Request, state view.State) {
	var buf bytes.Buffer
	if err := view.RenderPage(&buf, state); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *DashboardServer) handleView(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

// handleSelect applies a month or year selection from a form value and
// answers with the refreshed view.
func (s *DashboardServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}

	ctx, cancel := detached(r.Context())
	defer cancel()

	var err error
	switch {
	case r.FormValue("month") != "":
		var month int
		if month, err = strconv.Atoi(r.FormValue("month")); err == nil {
			err = ctrl.SelectMonth(ctx, month)
		}
	case r.FormValue("year") != "":
		var year int
		if year, err = strconv.Atoi(r.FormValue("year")); err == nil {
			err = ctrl.SelectYear(ctx, year)
		}
	default:
		err = errors.New("month or year is required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

// handleRefresh drops the cached payloads of the current period and loads
// it again from the backend.
func (s *DashboardServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}

	ctx, cancel := detached(r.Context())
	defer cancel()

	period := ctrl.Period()
	if err := s.stats.Invalidate(ctx, ctrl.Entity(), period); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to invalidate cache")
	}
	if err := ctrl.Refresh(ctx, period); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

func (s *DashboardServer) handleTab(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	tab, err := domain.ParseActiveTab(mux.Vars(r)["tab"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !ctrl.SetActiveTab(tab) {
		writeError(w, http.StatusConflict, errors.New("tab has no content"))
		return
	}
	writeJSON(w, http.StatusOK, ctrl.View())
}

// handleTable serves a DataTables server-side page for the current period.
func (s *DashboardServer) handleTable(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}

	q := parseTableQuery(r)
	region := view.Region(mux.Vars(r)["table"])

	ctx, cancel := detached(r.Context())
	defer cancel()

	table, err := ctrl.LoadTable(ctx, region, q)
	switch {
	case errors.Is(err, controller.ErrStale):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"draw":  q.Draw,
			"error": controller.ErrorMessage(err),
			"data":  table.Rows,
		})
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func parseTableQuery(r *http.Request) domain.TableQuery {
	q := domain.DefaultTableQuery()
	vals := r.URL.Query()
	if v, err := strconv.Atoi(vals.Get("draw")); err == nil {
		q.Draw = v
	}
	if v, err := strconv.Atoi(vals.Get("start")); err == nil {
		q.Start = v
	}
	if v, err := strconv.Atoi(vals.Get("length")); err == nil {
		q.Length = v
	}
	if v, err := strconv.Atoi(vals.Get("order[0][column]")); err == nil {
		q.OrderColumn = v
	}
	if v := vals.Get("order[0][dir]"); v != "" {
		q.OrderDir = domain.SortDir(v)
	}
	q.Search = vals.Get("search[value]")
	return q
}

func (s *DashboardServer) handleTop10(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	s.writeModal(w, r, ctrl.View().Top10URL)
}

func (s *DashboardServer) handleTopCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := view.LookupStatCategory(mux.Vars(r)["category"])
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown stat category"))
		return
	}
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	s.writeModal(w, r, s.stats.TopCategory(category.Key, ctrl.Entity(), ctrl.Period()))
}

func (s *DashboardServer) writeModal(w http.ResponseWriter, r *http.Request, path string) {
	status, body, err := s.stats.Partial(r.Context(), path)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", path).Msg("modal fetch failed")
		writeJSON(w, http.StatusOK, view.Modal{Title: "Error", Body: controller.ErrorMessage(err), Error: true})
		return
	}
	writeJSON(w, http.StatusOK, view.RenderModal(status, body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
