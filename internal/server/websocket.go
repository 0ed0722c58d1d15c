package server

import (
	"context"
	"net/http"
	"time"

	"killstats/internal/constants"
	"killstats/internal/controller"
	"killstats/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	websocketUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	websocketCloseNormal = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
)

// wsCommand is what a viewer sends over the socket.
type wsCommand struct {
	Action string `json:"action"`
	Value  int    `json:"value"`
	Tab    string `json:"tab"`
}

// handleWebsocket streams every applied region update of the viewer's
// controller and accepts month, year and tab selections.
func (s *DashboardServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := s.controllerFor(w, r)
	if !ok {
		return
	}
	logger := zerolog.Ctx(r.Context()).With().Str("entity", ctrl.Entity().String()).Logger()

	ws, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan controller.RegionUpdate, 64)
	unsubscribe := ctrl.Subscribe(func(u controller.RegionUpdate) {
		select {
		case updates <- u:
		default:
			logger.Warn().Uint64("version", u.Version).Msg("websocket too slow, closing")
			cancel()
		}
	})
	defer unsubscribe()

	go s.readCommands(ctx, cancel, ws, ctrl, logger)

	if err := ws.WriteJSON(controller.RegionUpdate{Region: controller.RegionPeriod, Token: ctrl.View().Token, State: ctrl.View()}); err != nil {
		return
	}

	ticker := time.NewTicker(constants.WebsocketPingInterval)
	defer ticker.Stop()

	for {
		select {
		case u := <-updates:
			ws.SetWriteDeadline(time.Now().Add(constants.WebsocketWriteTimeout))
			if err := ws.WriteJSON(u); err != nil {
				logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(constants.WebsocketWriteTimeout))
			if err != nil {
				return
			}
		case <-ctx.Done():
			err := ws.WriteMessage(websocket.CloseMessage, websocketCloseNormal)
			if err != nil && err != websocket.ErrCloseSent {
				logger.Debug().Err(err).Msg("websocket close failed")
			}
			return
		}
	}
}

func (s *DashboardServer) readCommands(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, ctrl *controller.Controller, logger zerolog.Logger) {
	defer cancel()

	ws.SetReadDeadline(time.Now().Add(constants.WebsocketReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(constants.WebsocketReadTimeout))
	})

	for {
		var cmd wsCommand
		if err := ws.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		switch cmd.Action {
		case "month":
			s.runSelection(logger, func(ctx context.Context) (*controller.Pending, error) { return ctrl.BeginMonth(ctx, cmd.Value) })
		case "year":
			s.runSelection(logger, func(ctx context.Context) (*controller.Pending, error) { return ctrl.BeginYear(ctx, cmd.Value) })
		case "tab":
			tab, err := domain.ParseActiveTab(cmd.Tab)
			if err != nil || !ctrl.SetActiveTab(tab) {
				logger.Debug().Str("tab", cmd.Tab).Msg("tab selection ignored")
			}
		default:
			logger.Debug().Str("action", cmd.Action).Msg("unknown websocket command")
		}
	}
}

// runSelection claims the selection in command order, then fetches it
// detached from the socket: the refresh keeps going even when the viewer
// disconnects and its result lands in the session.
func (s *DashboardServer) runSelection(logger zerolog.Logger, begin func(ctx context.Context) (*controller.Pending, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
	pending, err := begin(ctx)
	if err != nil {
		cancel()
		logger.Warn().Err(err).Msg("selection rejected")
		return
	}
	go func() {
		defer cancel()
		pending.Run()
	}()
}
