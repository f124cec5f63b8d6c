package http

import (
	"context"
	"net/http"
	"time"

	"planner/internal/authview"
	"planner/internal/dashboard"
	"planner/internal/log"
	"planner/internal/shell"
)

const maxFormBytes = 64 << 10

type loadingData struct {
	PollDelay string
}

type authData struct {
	Form        authview.Form
	SubmitLabel string
}

type dashboardData struct {
	Email      string
	Summary    dashboard.Summary
	Rows       []dashboard.CategoryRow
	Categories []string
	ModalOpen  bool
}

// shellFor resolves the browser's client id and its shell.
func (s *Server) shellFor(w http.ResponseWriter, r *http.Request) (*shell.Shell, string) {
	id := s.clientID(w, r)
	return s.registry.Get(r.Context(), id), id
}

// handleIndex renders the page skeleton. The shell is created here so its
// session fetch is already running when the page asks for /ui/view.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.shellFor(w, r)

	body, err := s.render(r.Context(), "index", nil)
	if err != nil {
		InternalServerError("Unable to render page").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Cache-Control", "no-store").
		BodyHTML(string(body)).
		Write(w)
}

// handleView answers with whatever the client's shell currently shows. A
// loading shell gets a short grace period before the spinner is returned.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	sh, _ := s.shellFor(w, r)
	prev := sh.View().State

	if prev == shell.Loading {
		t := time.NewTimer(s.viewWait)
		select {
		case <-sh.Ready():
		case <-t.C:
		case <-r.Context().Done():
		}
		t.Stop()
	}

	s.viewResponse(r.Context(), sh, prev).Write(w)
}

// handleAuthMode switches the auth form between sign-up and sign-in.
func (s *Server) handleAuthMode(w http.ResponseWriter, r *http.Request) {
	sh, _ := s.shellFor(w, r)
	prev := sh.View().State
	sh.SetAuthMode(authview.ParseMode(r.URL.Query().Get("mode")))
	s.viewResponse(r.Context(), sh, prev).Write(w)
}

// handleAuthSubmit sends the entered credentials through the shell's form.
// Email and password are passed on exactly as typed.
func (s *Server) handleAuthSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form submission").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sh, clientID := s.shellFor(w, r)
	prev := sh.View().State
	if prev != shell.SignedOut {
		s.viewResponse(ctx, sh, prev).Write(w)
		return
	}

	mode := authview.ParseMode(r.PostForm.Get("mode"))
	email := r.PostForm.Get("email")
	_, err := sh.SubmitAuth(ctx, mode, email, r.PostForm.Get("password"))

	op := log.OpSignUp
	if mode == authview.ModeSignIn {
		op = log.OpSignIn
	}
	s.structured.LogAuthAttempt(ctx, op, clientID, email, err)

	s.viewResponse(ctx, sh, prev).Write(w)
}

// handleSignOut asks the provider to end the session. A provider error is
// logged and otherwise ignored; the view only moves on a notification.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sh, clientID := s.shellFor(w, r)
	prev := sh.View().State
	if err := sh.SignOut(ctx); err != nil {
		fields := log.NewFields().
			WithClientID(clientID).
			WithOperation(log.OpSignOut).
			WithError(err)
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).WarnContext(ctx, "Sign out failed", fields.ToSlice()...)
	}
	s.viewResponse(ctx, sh, prev).Write(w)
}

func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	sh, _ := s.shellFor(w, r)
	prev := sh.View().State
	d := sh.Dashboard()
	if d != nil {
		d.OpenModal()
	}
	s.viewResponse(r.Context(), sh, prev).TriggerModalToggled(d != nil).Write(w)
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	sh, _ := s.shellFor(w, r)
	prev := sh.View().State
	if d := sh.Dashboard(); d != nil {
		d.CloseModal()
	}
	s.viewResponse(r.Context(), sh, prev).TriggerModalToggled(false).Write(w)
}

// handleSubmitExpense accepts the add-expense form and discards it.
func (s *Server) handleSubmitExpense(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form submission").Write(w)
		return
	}

	sh, clientID := s.shellFor(w, r)
	prev := sh.View().State
	if d := sh.Dashboard(); d != nil {
		draft := dashboard.ExpenseDraft{
			Category:    sanitizeInput(r.PostForm.Get("category")),
			Amount:      sanitizeInput(r.PostForm.Get("amount")),
			Description: sanitizeInput(r.PostForm.Get("description")),
		}
		d.SubmitExpense(draft)
		log.FromContext(r.Context()).WithComponent(log.ComponentDashboard).DebugContext(r.Context(), "Expense draft discarded",
			log.FieldClientID, clientID,
			"category", draft.Category)
	}
	s.viewResponse(r.Context(), sh, prev).TriggerModalToggled(false).Write(w)
}

// handleChart serves the cached bar chart.
func (s *Server) handleChart(format dashboard.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.charts.Chart(format)
		if err != nil {
			s.structured.LogError(r.Context(), "Chart rendering failed", err, log.OpRender, log.NewFields())
			InternalServerError("Unable to render chart").Write(w)
			return
		}
		NewHTMXResponse().
			Header("Content-Type", format.ContentType()).
			Header("Cache-Control", "public, max-age=3600").
			Body(data).
			Write(w)
	}
}

// viewResponse renders the partial for the shell's current state. When the
// state differs from prev the response also carries a session:changed
// trigger.
func (s *Server) viewResponse(ctx context.Context, sh *shell.Shell, prev shell.State) *HTMXResponseBuilder {
	v := sh.View()

	var (
		name string
		data any
	)
	switch v.State {
	case shell.SignedIn:
		d := sh.Dashboard()
		if d == nil {
			d = dashboard.NewView()
		}
		name = "dashboard"
		data = dashboardData{
			Email:      v.User.Email,
			Summary:    d.Summary(),
			Rows:       d.Rows(),
			Categories: dashboard.Categories(),
			ModalOpen:  d.ModalOpen(),
		}
	case shell.SignedOut:
		form, ok := sh.AuthForm()
		if !ok {
			form = *authview.New()
		}
		name = "auth_form"
		data = authData{Form: form, SubmitLabel: form.SubmitLabel()}
	default:
		name = "loading"
		data = loadingData{PollDelay: s.pollDelay}
	}

	body, err := s.render(ctx, name, data)
	if err != nil {
		return InternalServerError("Unable to render page")
	}

	b := NewHTMXResponse().
		Header("Cache-Control", "no-store").
		BodyHTML(string(body))
	if v.State != prev {
		b.TriggerSessionChanged(v.State.String())
	}
	return b
}
