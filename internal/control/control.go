// Package control exposes the controller over a local HTTP API so an
// external editor can create and edit macros and their steps, start and
// stop playback, pick positions and follow the playback state over a
// websocket.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tischda/macrokeys/internal/app"
	"github.com/tischda/macrokeys/internal/macro"
	"github.com/tischda/macrokeys/internal/picker"
)

const shutdownTimeout = 5 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// Server serves the control API for one controller.
type Server struct {
	ctl *app.Controller
	log *zap.Logger
}

// StepView is the wire form of a step. Unlike the store format it carries
// the step id.
type StepView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
	Keys        []string `json:"keys"`
	Text        string   `json:"text"`
	DelayMs     int      `json:"delayMs"`
	Note        string   `json:"note"`
}

// MacroView is the wire form of a macro.
type MacroView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Hotkey      string     `json:"hotkey"`
	RepeatCount int        `json:"repeatCount"`
	Repeat      string     `json:"repeat"`
	Steps       []StepView `json:"steps"`
}

// MacroPatch lists the macro fields to change. Nil fields are left alone.
type MacroPatch struct {
	Name        *string `json:"name"`
	Hotkey      *string `json:"hotkey"`
	RepeatCount *int    `json:"repeatCount"`
}

// StepPatch lists the step fields to change. Nil fields are left alone.
type StepPatch struct {
	Type    *string   `json:"type"`
	X       *int      `json:"x"`
	Y       *int      `json:"y"`
	Keys    *[]string `json:"keys"`
	Text    *string   `json:"text"`
	DelayMs *int      `json:"delayMs"`
	Note    *string   `json:"note"`
}

// New returns a server for ctl.
func New(ctl *app.Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{ctl: ctl, log: log.With(zap.String("component", "control"))}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.logRequests)

	r.Get("/status", s.handleStatus)
	r.Post("/stop", s.handleStop)
	r.Route("/macros", func(r chi.Router) {
		r.Get("/", s.handleMacros)
		r.Post("/", s.handleCreateMacro)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleMacro)
			r.Patch("/", s.handlePatchMacro)
			r.Delete("/", s.handleDeleteMacro)
			r.Post("/play", s.handlePlay)
			r.Post("/steps", s.handleAddStep)
			r.Route("/steps/{stepID}", func(r chi.Router) {
				r.Patch("/", s.handlePatchStep)
				r.Delete("/", s.handleDeleteStep)
				r.Post("/up", s.handleMoveStep(s.ctl.MoveStepUp))
				r.Post("/down", s.handleMoveStep(s.ctl.MoveStepDown))
				r.Post("/pick", s.handlePick)
			})
		})
	})
	r.Get("/events", s.handleEvents)
	return r
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("control server listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.State())
}

func (s *Server) handleMacros(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(s.ctl.Macros(), func(m macro.Macro, _ int) MacroView {
		return viewOf(m)
	}))
}

func (s *Server) handleMacro(w http.ResponseWriter, r *http.Request) {
	m, err := s.ctl.Macro(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

// handleCreateMacro adds a macro. The body is optional and may set the same
// fields as a patch.
func (s *Server) handleCreateMacro(w http.ResponseWriter, r *http.Request) {
	var p MacroPatch
	if err := readJSON(r, &p, true); err != nil {
		writeError(w, err)
		return
	}
	m := s.ctl.AddMacro()
	if err := s.applyMacroPatch(m.ID, p); err != nil {
		writeError(w, err)
		return
	}
	s.writeMacro(w, http.StatusCreated, m.ID)
}

// handlePatchMacro renames the macro, sets its hotkey or its repeat count.
// Hotkey conflicts only produce a status warning.
func (s *Server) handlePatchMacro(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var p MacroPatch
	if err := readJSON(r, &p, false); err != nil {
		writeError(w, err)
		return
	}
	if err := s.applyMacroPatch(id, p); err != nil {
		writeError(w, err)
		return
	}
	s.writeMacro(w, http.StatusOK, id)
}

func (s *Server) handleDeleteMacro(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.DeleteMacro(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type string `json:"type"`
	}
	if err := readJSON(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	t, err := macro.ParseStepType(body.Type)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	step, err := s.ctl.AddStep(chi.URLParam(r, "id"), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stepViewOf(step))
}

func (s *Server) handlePatchStep(w http.ResponseWriter, r *http.Request) {
	id, stepID := chi.URLParam(r, "id"), chi.URLParam(r, "stepID")
	var p StepPatch
	if err := readJSON(r, &p, false); err != nil {
		writeError(w, err)
		return
	}
	var t macro.StepType
	if p.Type != nil {
		var err error
		if t, err = macro.ParseStepType(*p.Type); err != nil {
			writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
	}
	err := s.ctl.UpdateStep(id, stepID, func(st *macro.Step) {
		if p.Type != nil {
			st.Type = t
		}
		setIf(&st.X, p.X)
		setIf(&st.Y, p.Y)
		setIf(&st.Keys, p.Keys)
		setIf(&st.Text, p.Text)
		setIf(&st.DelayMs, p.DelayMs)
		setIf(&st.Note, p.Note)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := s.ctl.Macro(id)
	if err != nil {
		writeError(w, err)
		return
	}
	i := m.StepIndex(stepID)
	if i < 0 {
		writeError(w, fmt.Errorf("step %s: %w", stepID, app.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, stepViewOf(m.Steps[i]))
}

func (s *Server) handleDeleteStep(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.DeleteStep(chi.URLParam(r, "id"), chi.URLParam(r, "stepID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMoveStep swaps a step with a neighbour through move and answers with
// the reordered macro. Moves past either end leave the order unchanged.
func (s *Server) handleMoveStep(move func(id, stepID string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := move(id, chi.URLParam(r, "stepID")); err != nil {
			writeError(w, err)
			return
		}
		s.writeMacro(w, http.StatusOK, id)
	}
}

func (s *Server) applyMacroPatch(id string, p MacroPatch) error {
	if p.Name != nil {
		if err := s.ctl.RenameMacro(id, *p.Name); err != nil {
			return err
		}
	}
	if p.Hotkey != nil {
		if err := s.ctl.SetHotkey(id, *p.Hotkey); err != nil {
			return err
		}
	}
	if p.RepeatCount != nil {
		if err := s.ctl.SetRepeatCount(id, *p.RepeatCount); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) writeMacro(w http.ResponseWriter, status int, id string) {
	m, err := s.ctl.Macro(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, viewOf(m))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ctl.Macro(id); err != nil {
		writeError(w, err)
		return
	}
	started := s.ctl.PlayByID(id)
	writeJSON(w, http.StatusAccepted, map[string]bool{"started": started})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctl.Stop()
	writeJSON(w, http.StatusAccepted, s.ctl.State())
}

// handlePick blocks until the user picks a point or the request goes away.
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	pt, ok, err := s.ctl.PickPosition(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Picked bool `json:"picked"`
		X      int  `json:"x"`
		Y      int  `json:"y"`
	}{ok, pt.X, pt.Y})
}

// handleEvents streams state snapshots until the client disconnects. Slow
// clients skip intermediate states.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("failed to accept events websocket", zap.Error(err))
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	ctx := conn.CloseRead(r.Context())
	states, cancel := s.ctl.Engine().Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "") //nolint:errcheck
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, st); err != nil {
				s.log.Debug("events client gone", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func viewOf(m macro.Macro) MacroView {
	return MacroView{
		ID:          m.ID,
		Name:        m.Name,
		Hotkey:      m.Hotkey,
		RepeatCount: m.RepeatCount,
		Repeat:      m.RepeatText(),
		Steps: lo.Map(m.Steps, func(st macro.Step, _ int) StepView {
			return stepViewOf(st)
		}),
	}
}

func stepViewOf(st macro.Step) StepView {
	return StepView{
		ID:          st.ID,
		Type:        string(st.Type),
		Description: st.Describe(),
		X:           st.X,
		Y:           st.Y,
		Keys:        lo.Ternary(st.Keys == nil, []string{}, st.Keys),
		Text:        st.Text,
		DelayMs:     st.DelayMs,
		Note:        st.Note,
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// readJSON decodes the request body into v. An empty body is accepted only
// when optional is set.
func readJSON(r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && optional:
		return nil
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, picker.ErrBusy):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
