package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Nomankaif/debtprotection-quiz/internal/auth"
	"github.com/Nomankaif/debtprotection-quiz/internal/handler"
	mw "github.com/Nomankaif/debtprotection-quiz/internal/middleware"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// Deps carries what the router mounts. Admin routes are mounted only when
// AuthH is set.
type Deps struct {
	Logger         *slog.Logger
	CORSOrigin     string
	RequestTimeout time.Duration
	JWTSecret      string

	SubmissionH *handler.SubmissionHandler
	AuthH       *handler.AuthHandler
	AdminH      *handler.AdminHandler
	APIDoc      http.Handler
}

func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery(d.Logger))
	r.Use(mw.Logger(d.Logger))
	r.Use(mw.CORS(d.CORSOrigin))
	r.Use(mw.BodyLimit(MaxBodyBytes))
	if d.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route does not exist.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/", d.SubmissionH.Root)
	r.Get("/api/health", d.SubmissionH.Health)
	if d.APIDoc != nil {
		r.Method(http.MethodGet, "/api/openapi.json", d.APIDoc)
	}

	// The quiz is also served behind a /quiz path prefix.
	for _, prefix := range []string{"", "/quiz"} {
		r.Post(prefix+"/api/form/submit", d.SubmissionH.Submit)
	}

	if d.AuthH != nil && d.AdminH != nil {
		r.Route("/api/admin", func(r chi.Router) {
			r.Post("/login", d.AuthH.Login)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(d.JWTSecret, auth.RoleAdmin))

				r.Get("/me", d.AuthH.Me)
				r.Get("/submissions", d.AdminH.List)
				r.Get("/submissions/{id}", d.AdminH.Get)
				r.Get("/stats", d.AdminH.Stats)
				r.Get("/indexes", d.AdminH.Indexes)
			})
		})
	}

	return r
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
