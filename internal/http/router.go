package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Spaces       *SpaceHandler
	Reservations *ReservationHandler

	// AuthMiddleware guards every route except /login.
	AuthMiddleware func(http.Handler) http.Handler
	// LoginLimiter throttles /login when configured.
	LoginLimiter *LoginRateLimiter
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	protected := http.NewServeMux()

	if cfg.Spaces != nil {
		mountSpaces(protected, cfg.Spaces, cfg.Reservations)
	}
	if cfg.Users != nil {
		mountUsers(protected, cfg.Users, cfg.Reservations)
	}
	if cfg.Reservations != nil {
		mountReservations(protected, cfg.Reservations)
	}

	var protectedHandler http.Handler = protected
	if cfg.AuthMiddleware != nil {
		protectedHandler = cfg.AuthMiddleware(protectedHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/", protectedHandler)

	if cfg.Auth != nil {
		var login http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Login(w, r)
		})
		if cfg.LoginLimiter != nil {
			login = cfg.LoginLimiter.Wrap(login)
		}
		mux.Handle("/login", login)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func mountSpaces(mux *http.ServeMux, spaces *SpaceHandler, reservations *ReservationHandler) {
	mux.HandleFunc("/spaces", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			spaces.List(w, r)
		case http.MethodPost:
			spaces.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/spaces/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/spaces/")
		if rest == "" {
			http.NotFound(w, r)
			return
		}

		if rest == "availability" {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			spaces.FindAvailable(w, r)
			return
		}

		id, sub, _ := strings.Cut(rest, "/")
		ctx := ContextWithSpaceID(r.Context(), id)
		r = r.WithContext(ctx)

		switch sub {
		case "":
			switch r.Method {
			case http.MethodGet:
				spaces.Get(w, r)
			case http.MethodPut:
				spaces.Update(w, r)
			case http.MethodDelete:
				spaces.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		case "reservations":
			if reservations == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			reservations.ListBySpace(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func mountUsers(mux *http.ServeMux, users *UserHandler, reservations *ReservationHandler) {
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			users.List(w, r)
		case http.MethodPost:
			users.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/users/")
		if rest == "" {
			http.NotFound(w, r)
			return
		}

		id, sub, _ := strings.Cut(rest, "/")
		ctx := ContextWithUserID(r.Context(), id)
		r = r.WithContext(ctx)

		switch sub {
		case "":
			switch r.Method {
			case http.MethodGet:
				users.Get(w, r)
			case http.MethodPut:
				users.Update(w, r)
			case http.MethodDelete:
				users.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		case "reservations":
			if reservations == nil {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			reservations.ListByUser(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func mountReservations(mux *http.ServeMux, reservations *ReservationHandler) {
	mux.HandleFunc("/reservations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			reservations.List(w, r)
		case http.MethodPost:
			reservations.Create(w, r)
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
		}
	})
	mux.HandleFunc("/reservations/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/reservations/")
		if rest == "" {
			http.NotFound(w, r)
			return
		}

		if rest == "search" {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			reservations.Search(w, r)
			return
		}

		id, sub, _ := strings.Cut(rest, "/")
		ctx := ContextWithReservationID(r.Context(), id)
		r = r.WithContext(ctx)

		switch sub {
		case "":
			switch r.Method {
			case http.MethodGet:
				reservations.Get(w, r)
			case http.MethodDelete:
				reservations.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		case "approve":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			reservations.Approve(w, r)
		case "reject":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			reservations.Reject(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
