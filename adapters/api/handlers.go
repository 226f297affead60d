package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Go-routine-4595/iba-monitor/model"
	"github.com/Go-routine-4595/iba-monitor/service"
	"github.com/Go-routine-4595/iba-monitor/service/expr"
)

const mimeMsgPack = "application/msgpack"

// Handler serves the dashboard views and user actions.
type Handler struct {
	svc         *service.Service
	sched       Scheduler
	signalsFile string
	version     string
	logger      zerolog.Logger
	now         func() time.Time
}

func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		svc:         deps.Service,
		sched:       deps.Scheduler,
		signalsFile: deps.SignalsFile,
		version:     deps.Version,
		logger:      deps.Logger.With().Str("component", "api").Logger(),
		now:         time.Now,
	}
}

type statusResponse struct {
	model.ConnectionStatus
	State    string `json:"state"`
	PeriodMs int64  `json:"periodMs"`
}

type signalView struct {
	model.SignalConfig
	Rule string `json:"rule"`
}

type saveSignalsResponse struct {
	Signals     []signalView           `json:"signals"`
	Diagnostics []model.EvalDiagnostic `json:"diagnostics"`
}

type checkRequest struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"val"`
}

type checkResponse struct {
	Valid  bool   `json:"valid"`
	Alarm  bool   `json:"alarm"`
	Result string `json:"error,omitempty"`
}

type analyzeResponse struct {
	Report string `json:"report"`
}

func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handler) HandleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.status())
}

func (h *Handler) status() statusResponse {
	return statusResponse{
		ConnectionStatus: h.svc.Session().Status(),
		State:            h.sched.State().String(),
		PeriodMs:         h.sched.Period().Milliseconds(),
	}
}

func (h *Handler) HandleGetSignals(c echo.Context) error {
	return c.JSON(http.StatusOK, views(h.svc.Session().Configs()))
}

func views(configs []model.SignalConfig) []signalView {
	out := make([]signalView, len(configs))
	for i, cfg := range configs {
		out[i] = signalView{SignalConfig: cfg, Rule: service.RuleText(cfg)}
	}
	return out
}

// HandleSaveSignals replaces the whole configuration. Expressions that do not
// compile are accepted and reported back as diagnostics.
func (h *Handler) HandleSaveSignals(c echo.Context) error {
	var configs []model.SignalConfig
	if err := c.Bind(&configs); err != nil {
		return NewBadRequestError("invalid signal list", err)
	}

	diags, err := h.svc.SaveConfigs(configs)
	if err != nil {
		return NewBadRequestError("invalid signal configuration", err)
	}

	if h.signalsFile != "" {
		if err := service.SaveSignals(h.signalsFile, configs); err != nil {
			h.logger.Error().Err(err).Str("file", h.signalsFile).Msg("write signal file")
			return NewInternalError("configuration applied but not persisted", err)
		}
	}

	if diags == nil {
		diags = []model.EvalDiagnostic{}
	}
	return c.JSON(http.StatusOK, saveSignalsResponse{
		Signals:     views(h.svc.Session().Configs()),
		Diagnostics: diags,
	})
}

// HandleValues returns the latest value per signal. ?format=msgpack switches
// the encoding.
func (h *Handler) HandleValues(c echo.Context) error {
	return respond(c, h.svc.Session().Values())
}

func (h *Handler) HandleHistory(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.svc.Session().Config(id); !ok {
		return NewNotFoundError("signal", id)
	}
	return respond(c, h.svc.Session().History(id))
}

// HandleAlarms lists the alarm log oldest first; ?limit=n keeps the newest n.
func (h *Handler) HandleAlarms(c echo.Context) error {
	alarms := h.svc.Session().Alarms()
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return NewBadRequestError("invalid limit", err)
		}
		if n < len(alarms) {
			alarms = alarms[len(alarms)-n:]
		}
	}
	return respond(c, alarms)
}

func (h *Handler) HandleClearAlarms(c echo.Context) error {
	h.svc.ClearAlarms()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleInjectFault(c echo.Context) error {
	return c.JSON(http.StatusCreated, h.svc.InjectFault(h.now()))
}

func (h *Handler) HandleAnalyze(c echo.Context) error {
	report, err := h.svc.Analyze(c.Request().Context())
	if err != nil {
		return fromDomain(err)
	}
	return c.JSON(http.StatusOK, analyzeResponse{Report: report})
}

func (h *Handler) HandleDiagnostics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Session().Diagnostics())
}

// HandleCheckExpression evaluates an expression against a trial value
// without touching the configuration.
func (h *Handler) HandleCheckExpression(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request", err)
	}

	prog, err := expr.Compile(req.Expression)
	if err != nil {
		return c.JSON(http.StatusOK, checkResponse{Result: err.Error()})
	}
	alarm, err := prog.Eval(req.Value)
	if err != nil {
		return c.JSON(http.StatusOK, checkResponse{Valid: true, Result: err.Error()})
	}
	return c.JSON(http.StatusOK, checkResponse{Valid: true, Alarm: alarm})
}

func (h *Handler) HandleConnect(c echo.Context) error {
	return h.transition(c, h.sched.Connect)
}

func (h *Handler) HandleDisconnect(c echo.Context) error {
	return h.transition(c, h.sched.Disconnect)
}

func (h *Handler) HandlePause(c echo.Context) error {
	return h.transition(c, h.sched.Pause)
}

func (h *Handler) HandleResume(c echo.Context) error {
	return h.transition(c, h.sched.Resume)
}

func (h *Handler) transition(c echo.Context, fn func() error) error {
	if err := fn(); err != nil {
		return fromDomain(err)
	}
	return c.JSON(http.StatusOK, h.status())
}

func respond(c echo.Context, v interface{}) error {
	if c.QueryParam("format") != "msgpack" {
		return c.JSON(http.StatusOK, v)
	}
	data, err := msgpack.Marshal(v)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, mimeMsgPack, data)
}
