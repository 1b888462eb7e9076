package server

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"diploma_generator/generator"
	"diploma_generator/publisher"
)

type formView struct {
	Topic     string
	Specialty string
	Pages     string
	Errors    []string
}

type resultView struct {
	RunID    string
	Topic    string
	Location string
	Content  string
	HTML     template.HTML
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", formView{Pages: "60"})
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "index.html", formView{Errors: []string{"invalid form"}})
		return
	}

	view := formView{
		Topic:     r.PostFormValue("topic"),
		Specialty: r.PostFormValue("specialty"),
		Pages:     strings.TrimSpace(r.PostFormValue("pages")),
	}
	pages, err := strconv.Atoi(view.Pages)
	if err != nil {
		view.Errors = []string{"pages must be a whole number"}
		s.render(w, r, http.StatusBadRequest, "index.html", view)
		return
	}

	req := generator.GenerationRequest{Topic: view.Topic, Specialty: view.Specialty, Pages: pages}.Normalize()
	if err := req.Validate(); err != nil {
		view.Errors = validationMessages(err)
		s.render(w, r, http.StatusBadRequest, "index.html", view)
		return
	}

	rec, err := s.execute(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		s.logFailure(r, status, rec, err)
		msg := publicMessage(status)
		if rec.Run != nil && rec.Run.FailedSection != "" {
			msg += ": " + rec.Run.FailedSection
		}
		view.Errors = []string{msg}
		s.render(w, r, status, "index.html", view)
		return
	}

	body, err := publisher.RenderHTML(rec.Run.Document)
	if err != nil {
		s.logger.WarnContext(r.Context(), "render html failed", "run_id", rec.Run.ID.String(), "error", err)
	}
	s.render(w, r, http.StatusOK, "result.html", resultView{
		RunID:    rec.Run.ID.String(),
		Topic:    req.Topic,
		Location: rec.Location,
		Content:  rec.Run.Document.Text,
		// goldmark runs without WithUnsafe, so model output cannot inject markup.
		HTML: template.HTML(body),
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "render template failed", "template", name, "error", err)
	}
}
