// Package web serves the study UI: an HTMX front end over the session.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudtardis/dads-english-app/internal/assist"
	"github.com/cloudtardis/dads-english-app/internal/domain"
	"github.com/cloudtardis/dads-english-app/internal/session"
	"github.com/cloudtardis/dads-english-app/internal/sm2"
	"github.com/cloudtardis/dads-english-app/internal/storage"
	"github.com/cloudtardis/dads-english-app/internal/sync"
	"github.com/cloudtardis/dads-english-app/internal/transfer"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// maxImportBytes bounds an uploaded transfer payload. Audio data URIs are
// large, so the limit is generous.
const maxImportBytes = 64 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	sess      *session.Session
	db        *storage.DB
	gen       assist.Generator
	router    *http.ServeMux
	templates *template.Template
	log       *slog.Logger
	reposDir  string
	clock     session.Clock
}

// NewServer creates and configures a new server.
func NewServer(sess *session.Session, db *storage.DB, gen assist.Generator, reposDir string, clock session.Clock, log *slog.Logger) *Server {
	// Parse templates
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Error("Failed to parse templates", "error", err)
		panic(err)
	}

	if clock == nil {
		clock = time.Now
	}
	s := &Server{
		sess:      sess,
		db:        db,
		gen:       gen,
		router:    http.NewServeMux(),
		templates: tpl,
		log:       log,
		reposDir:  reposDir,
		clock:     clock,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.log.Error("Failed to create sub-filesystem for static assets", "error", err)
		panic(err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	s.router.Handle("/static/", http.StripPrefix("/static/", fileServer))
	s.router.Handle("/", fileServer)

	// HTMX-based review routes
	s.router.HandleFunc("/deck", s.handleGetDeck())
	s.router.HandleFunc("/review/next", s.handleGetNextReview())
	s.router.HandleFunc("/review/answer/", s.handleShowAnswer())
	s.router.HandleFunc("/review/", s.handlePostReview())
	s.router.HandleFunc("/advance", s.handleAdvanceDay())

	// Card management routes
	s.router.HandleFunc("/cards", s.handleCards())
	s.router.HandleFunc("/cards/", s.handleDeleteCard())
	s.router.HandleFunc("/export", s.handleExport())
	s.router.HandleFunc("/import", s.handleImport())

	// Source management routes
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

// deckData is the payload for the deck summary partial.
type deckData struct {
	DueCount    int
	Total       int
	HasDueCards bool
}

func (s *Server) deckData() deckData {
	due := s.sess.DueCount()
	return deckData{
		DueCount:    due,
		Total:       s.sess.Len(),
		HasDueCards: due > 0,
	}
}

// cardView is the payload for the card front/back partials.
type cardView struct {
	domain.Card
	Binary bool // which rating buttons to render
}

func (s *Server) cardView(c domain.Card) cardView {
	return cardView{Card: c, Binary: s.sess.Scheduler().Model() == sm2.Binary}
}

// handleGetDeck renders the deck view, showing the number of due cards.
func (s *Server) handleGetDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.templates.ExecuteTemplate(w, "deck", s.deckData())
	}
}

// handleGetNextReview renders the front of the next due card.
func (s *Server) handleGetNextReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, ok := s.sess.NextDue()
		if !ok {
			s.templates.ExecuteTemplate(w, "deck", s.deckData())
			return
		}
		s.templates.ExecuteTemplate(w, "card_front", s.cardView(card))
	}
}

// handleShowAnswer renders the back of a card.
func (s *Server) handleShowAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/review/answer/")
		card, ok := s.sess.Get(id)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.templates.ExecuteTemplate(w, "card_back", s.cardView(card))
	}
}

// handlePostReview processes a review and renders the next card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/review/")
		gradeStr := r.PostFormValue("grade")
		grade, err := strconv.Atoi(gradeStr)
		if err != nil || !s.sess.Scheduler().ValidRating(sm2.Rating(grade)) {
			http.Error(w, "Invalid grade", http.StatusBadRequest)
			return
		}

		if _, err := s.sess.Rate(id, sm2.Rating(grade)); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			s.log.Error("Error rating card", "id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// After review, show the next card
		s.handleGetNextReview()(w, r)
	}
}

// handleAdvanceDay shifts all due dates back a day and re-renders the deck.
func (s *Server) handleAdvanceDay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.sess.AdvanceDay()
		s.templates.ExecuteTemplate(w, "deck", s.deckData())
	}
}

// handleCards handles card creation.
func (s *Server) handleCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		prompt := strings.TrimSpace(r.PostFormValue("prompt"))
		answer := strings.TrimSpace(r.PostFormValue("answer"))
		topic := strings.TrimSpace(r.PostFormValue("topic"))

		var warnings []string
		if prompt == "" && s.gen != nil {
			generated, err := s.gen.GenerateSentence(r.Context(), topic)
			if err != nil {
				s.log.Warn("Sentence generation failed", "error", err)
				warnings = append(warnings, "Sentence generation failed, fill in the sentence yourself.")
			} else {
				prompt = generated
			}
		}
		if prompt == "" {
			http.Error(w, "A card needs a sentence", http.StatusBadRequest)
			return
		}

		card, err := domain.New(prompt, answer, s.clock())
		if err != nil {
			s.log.Error("Error creating card", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// Translation and audio are independent best-effort helpers; a
		// failure in either never blocks saving the card.
		if s.gen != nil {
			if card.Answer == "" {
				translated, err := s.gen.Translate(r.Context(), prompt)
				if err != nil {
					s.log.Warn("Translation failed", "error", err)
					warnings = append(warnings, "Translation failed, add one manually.")
				} else {
					card.Answer = translated
				}
			}
			audio, err := s.gen.Synthesize(r.Context(), prompt)
			if err != nil {
				s.log.Warn("Audio synthesis failed", "error", err)
				warnings = append(warnings, "Audio could not be generated.")
			} else {
				card.AudioData = audio
			}
		}

		s.sess.Add(card)
		s.templates.ExecuteTemplate(w, "card_created", map[string]any{
			"Card":     s.cardView(card),
			"Warnings": warnings,
		})
	}
}

// handleDeleteCard removes a card from the collection.
func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/cards/")
		if err := s.sess.Remove(id); err != nil {
			http.NotFound(w, r)
			return
		}
		s.templates.ExecuteTemplate(w, "deck", s.deckData())
	}
}

// handleExport streams the full collection in the transfer format.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := transfer.Export(s.sess.Snapshot())
		if err != nil {
			s.log.Error("Error exporting cards", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="cards.json"`)
		w.Write(data)
	}
}

// handleImport replaces the collection with an uploaded transfer payload.
// A malformed payload is rejected before any existing card is touched.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		data, err := readImportPayload(r)
		if err != nil {
			http.Error(w, "Could not read upload", http.StatusBadRequest)
			return
		}
		cards, err := transfer.Import(data)
		if err != nil {
			s.log.Warn("Rejected import payload", "error", err)
			http.Error(w, "Invalid import file: expected a JSON array of cards", http.StatusBadRequest)
			return
		}

		s.sess.Replace(cards)
		s.log.Info("Imported cards", "count", len(cards))
		s.templates.ExecuteTemplate(w, "deck", s.deckData())
	}
}

func readImportPayload(r *http.Request) ([]byte, error) {
	if f, _, err := r.FormFile("file"); err == nil {
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
}

// handlePostSync triggers a manual sync and re-renders the source list.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Run in the foreground to make the user wait
		if err := sync.Run(r.Context(), s.db, s.sess, s.reposDir, s.clock()); err != nil {
			s.log.Error("Sync failed", "error", err)
			http.Error(w, "Sync failed", http.StatusInternalServerError)
			return
		}

		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			s.log.Error("Error getting sources after sync", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"Sources": sources,
		}

		// Render both the success message and the updated list
		s.templates.ExecuteTemplate(w, "sync_success", nil)
		s.templates.ExecuteTemplate(w, "source_list", data)
	}
}

// handleSources handles both GET and POST for the sources page.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSources(w, r)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleGetSources renders the main sources management page.
func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.log.Error("Error getting sources", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"Sources": sources,
	}
	s.templates.ExecuteTemplate(w, "sources", data)
}

// handlePostSource adds a new source and re-renders the source list.
func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	path := r.PostFormValue("path")
	if path == "" {
		http.Error(w, "Path cannot be empty", http.StatusBadRequest)
		return
	}

	if _, err := s.db.InsertSource(r.Context(), path, sourceType(path)); err != nil {
		s.log.Error("Error inserting new source", "error", err)
		http.Error(w, "Failed to add source", http.StatusInternalServerError)
		return
	}

	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.log.Error("Error getting sources after add", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"Sources": sources,
	}
	s.templates.ExecuteTemplate(w, "source_list", data)
}

// sourceType classifies a source path as a git URL or a local directory.
func sourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return "git"
	}
	return "local"
}

// handleDeleteSource deletes a source and re-renders the source list.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(r.Context(), id); err != nil {
			s.log.Error("Error deleting source", "id", id, "error", err)
			http.Error(w, "Failed to delete source", http.StatusInternalServerError)
			return
		}

		sources, err := s.db.GetAllSources(r.Context())
		if err != nil {
			s.log.Error("Error getting sources after delete", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data := map[string]interface{}{
			"Sources": sources,
		}
		s.templates.ExecuteTemplate(w, "source_list", data)
	}
}
