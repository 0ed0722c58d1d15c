package server

import (
	"context"
	"errors"
	"net/http"

	"killstats/internal/controller"
	"killstats/internal/domain"
	"killstats/internal/view"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

const (
	DashboardServicePath  = "/killstats.v1.DashboardService/"
	GetViewProcedure      = DashboardServicePath + "GetView"
	SelectPeriodProcedure = DashboardServicePath + "SelectPeriod"
	SetActiveTabProcedure = DashboardServicePath + "SetActiveTab"
)

// jsonCodec lets Connect carry plain structs as JSON; it replaces the
// protobuf-only default codec registered under the same name.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type ViewerRequest struct {
	Session string `json:"session"`
	Kind    string `json:"kind"`
	ID      int64  `json:"id"`
}

type SelectPeriodRequest struct {
	ViewerRequest
	Month int `json:"month"`
	Year  int `json:"year"`
}

type SetActiveTabRequest struct {
	ViewerRequest
	Tab string `json:"tab"`
}

type ViewResponse struct {
	Session string     `json:"session"`
	View    view.State `json:"view"`
}

// Handler mounts the DashboardService procedures.
func (s *DashboardServer) Handler() (string, http.Handler) {
	opts := connect.WithCodec(jsonCodec{})

	mux := http.NewServeMux()
	mux.Handle(GetViewProcedure, connect.NewUnaryHandler(GetViewProcedure, s.GetView, opts))
	mux.Handle(SelectPeriodProcedure, connect.NewUnaryHandler(SelectPeriodProcedure, s.SelectPeriod, opts))
	mux.Handle(SetActiveTabProcedure, connect.NewUnaryHandler(SetActiveTabProcedure, s.SetActiveTab, opts))
	return DashboardServicePath, mux
}

func (s *DashboardServer) GetView(ctx context.Context, req *connect.Request[ViewerRequest]) (*connect.Response[ViewResponse], error) {
	session, ctrl, err := s.rpcController(ctx, *req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ViewResponse{Session: session, View: ctrl.View()}), nil
}

func (s *DashboardServer) SelectPeriod(ctx context.Context, req *connect.Request[SelectPeriodRequest]) (*connect.Response[ViewResponse], error) {
	session, ctrl, err := s.rpcController(ctx, req.Msg.ViewerRequest)
	if err != nil {
		return nil, err
	}

	ctx, cancel := detached(ctx)
	defer cancel()

	switch {
	case req.Msg.Month != 0 && req.Msg.Year != 0:
		err = ctrl.Refresh(ctx, domain.Period{Month: req.Msg.Month, Year: req.Msg.Year})
	case req.Msg.Month != 0:
		err = ctrl.SelectMonth(ctx, req.Msg.Month)
	case req.Msg.Year != 0:
		err = ctrl.SelectYear(ctx, req.Msg.Year)
	default:
		err = errors.New("month or year is required")
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewResponse(&ViewResponse{Session: session, View: ctrl.View()}), nil
}

func (s *DashboardServer) SetActiveTab(ctx context.Context, req *connect.Request[SetActiveTabRequest]) (*connect.Response[ViewResponse], error) {
	session, ctrl, err := s.rpcController(ctx, req.Msg.ViewerRequest)
	if err != nil {
		return nil, err
	}
	tab, err := domain.ParseActiveTab(req.Msg.Tab)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if !ctrl.SetActiveTab(tab) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("tab has no content"))
	}
	return connect.NewResponse(&ViewResponse{Session: session, View: ctrl.View()}), nil
}

// rpcController resolves the session named in the request, issuing a new
// session id when none is given.
func (s *DashboardServer) rpcController(ctx context.Context, req ViewerRequest) (string, *controller.Controller, error) {
	kind, err := domain.ParseEntityKind(req.Kind)
	if err != nil {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	entity := domain.Entity{Kind: kind, ID: req.ID}

	session := req.Session
	if session == "" {
		session = uuid.New().String()
	}
	ctrl, fresh, err := s.sessions.Get(session, entity)
	if err != nil {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if fresh {
		startCtx, cancel := detached(ctx)
		defer cancel()
		if err := ctrl.Start(startCtx); err != nil {
			return "", nil, connect.NewError(connect.CodeInternal, err)
		}
	}
	return session, ctrl, nil
}
