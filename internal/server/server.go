package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"dockwise/internal/domain"
	"dockwise/internal/engine"
	"dockwise/internal/engine/auth"
	"dockwise/internal/logger"
	"dockwise/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unavailable"`
	Message string         `json:"message" example:"dock unavailable: reservation_overlap"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Dockwise API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Dockwise API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerAuth(group, cfg.Engine, cfg.Auth)
	registerUsers(group, cfg.Engine)
	registerDocks(group, cfg.Engine)
	registerReservations(group, cfg.Engine)
	registerMaintenances(group, cfg.Engine)
	registerIncidents(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine errors onto HTTP status codes. Domain rejections
// are expected control flow; only unknown errors are logged.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"action": fe.Action})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, engine.ErrBadCredentials) {
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	}
	var ue engine.UnavailableError
	if errors.As(err, &ue) {
		return newAPIError(http.StatusBadRequest, "unavailable", err.Error(), map[string]any{"reason": ue.Reason})
	}
	var ite engine.InvalidTransitionError
	if errors.As(err, &ite) {
		return newAPIError(http.StatusBadRequest, "invalid_transition", err.Error(), map[string]any{"from": ite.From, "to": ite.To})
	}
	var dne engine.DuplicateNumberError
	if errors.As(err, &dne) {
		return newAPIError(http.StatusBadRequest, "duplicate_number", err.Error(), map[string]any{"number": dne.Number})
	}
	var ire engine.InvalidReferenceError
	if errors.As(err, &ire) {
		return newAPIError(http.StatusBadRequest, "invalid_reference", err.Error(), map[string]any{"field": ire.Field})
	}
	switch err.(type) {
	case engine.InvalidWindowError:
		return newAPIError(http.StatusBadRequest, "invalid_window", err.Error(), nil)
	case engine.PastWindowError:
		return newAPIError(http.StatusBadRequest, "past_window", err.Error(), nil)
	case engine.NotActiveError:
		return newAPIError(http.StatusBadRequest, "not_active", err.Error(), nil)
	case engine.AlreadyStartedError:
		return newAPIError(http.StatusBadRequest, "already_started", err.Error(), nil)
	case engine.DockInactiveError:
		return newAPIError(http.StatusBadRequest, "dock_inactive", err.Error(), nil)
	case engine.ReservationConflictError:
		return newAPIError(http.StatusBadRequest, "reservation_conflict", err.Error(), nil)
	case engine.ValidationError:
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
	}
	logger.Error("unexpected error", "err", err)
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func actorFromRequest(ctx context.Context) (engine.Actor, huma.StatusError) {
	p, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return engine.Actor{}, authErr
	}
	return engine.Actor{ID: p.UserID, Role: p.Role}, nil
}

func parseTime(field, value string) (time.Time, huma.StatusError) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, newAPIError(http.StatusBadRequest, "bad_request",
			fmt.Sprintf("%s must be an RFC3339 timestamp", field), nil)
	}
	return t, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		path.Join("/", basePath, "health"):        true,
		path.Join("/", basePath, "auth/login"):    true,
		path.Join("/", basePath, "auth/register"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Dockwise API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerAuth(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body RegisterRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.RegisterUser(ctx, engine.UserCreateOptions{
			Email:    input.Body.Email,
			Name:     input.Body.Name,
			Role:     input.Body.Role,
			Password: input.Body.Password,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := e.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, err := IssueToken(authCfg, u, time.Now())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{AccessToken: token, TokenType: "bearer", User: u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rec, err := e.Repo.GetUser(ctx, p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: rec.User}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-password",
		Method:      http.MethodPost,
		Path:        "/auth/password",
		Summary:     "Change password",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body ChangePasswordRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ChangePassword(ctx, actor, input.Body.CurrentPassword, input.Body.NewPassword); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Role   string `query:"role" enum:"administrator,operator,planner,supervisor,admin_it,"`
		Active bool   `query:"active"`
		Limit  int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListUsers(ctx, actor, repo.UserFilters{
			Role:       input.Role,
			ActiveOnly: input.Active,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "Get user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.GetUser(ctx, actor, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPatch,
		Path:        "/users/{user_id}",
		Summary:     "Update user",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string            `path:"user_id"`
		Body   UpdateUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.UpdateUser(ctx, actor, input.UserID, engine.UserUpdateOptions{
			Name: input.Body.Name,
			Role: input.Body.Role,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-user",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/activate",
		Summary:     "Activate user",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.SetUserActive(ctx, actor, input.UserID, true)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-user",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/deactivate",
		Summary:     "Deactivate user",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.SetUserActive(ctx, actor, input.UserID, false)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})
}

func registerDocks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-dock",
		Method:        http.MethodPost,
		Path:          "/docks",
		Summary:       "Register dock",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateDockRequest `json:"body"`
	}) (*struct {
		Body domain.Dock `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.DockCreateOptions{
			Number:   input.Body.Number,
			TypeID:   input.Body.TypeID,
			Capacity: input.Body.Capacity,
		}
		if input.Body.Location != nil {
			opts.Location = *input.Body.Location
		}
		if input.Body.Notes != nil {
			opts.Notes = *input.Body.Notes
		}
		d, err := e.CreateDock(ctx, actor, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dock `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-docks",
		Method:      http.MethodGet,
		Path:        "/docks",
		Summary:     "List docks",
	}, func(ctx context.Context, input *struct {
		State  string `query:"state" enum:"free,reserved,in_use,maintenance,"`
		TypeID int    `query:"type_id" minimum:"0"`
		Active bool   `query:"active"`
		Limit  int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Dock `json:"body"`
	}, error) {
		items, err := e.Repo.ListDocks(ctx, repo.DockFilters{
			StateCode:  input.State,
			TypeID:     input.TypeID,
			ActiveOnly: input.Active,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Dock `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dock",
		Method:      http.MethodGet,
		Path:        "/docks/{dock_id}",
		Summary:     "Get dock",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string `path:"dock_id"`
	}) (*struct {
		Body domain.Dock `json:"body"`
	}, error) {
		d, err := e.Repo.GetDock(ctx, input.DockID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dock `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-dock",
		Method:      http.MethodPatch,
		Path:        "/docks/{dock_id}",
		Summary:     "Update dock",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string            `path:"dock_id"`
		Body   UpdateDockRequest `json:"body"`
	}) (*struct {
		Body domain.Dock `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDock(ctx, actor, input.DockID, engine.DockUpdateOptions{
			Number:   input.Body.Number,
			TypeID:   input.Body.TypeID,
			Capacity: input.Body.Capacity,
			Location: input.Body.Location,
			Notes:    input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dock `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-dock",
		Method:      http.MethodDelete,
		Path:        "/docks/{dock_id}",
		Summary:     "Deactivate dock",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string `path:"dock_id"`
	}) (*struct {
		Body domain.Dock `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.SetDockActive(ctx, actor, input.DockID, false)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dock `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-dock",
		Method:      http.MethodPost,
		Path:        "/docks/{dock_id}/activate",
		Summary:     "Reactivate dock",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string `path:"dock_id"`
	}) (*struct {
		Body domain.Dock `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.SetDockActive(ctx, actor, input.DockID, true)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Dock `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dock-availability",
		Method:      http.MethodGet,
		Path:        "/docks/{dock_id}/availability",
		Summary:     "Check dock availability",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string `path:"dock_id"`
		Start  string `query:"start" format:"date-time" required:"true"`
		End    string `query:"end" format:"date-time" required:"true"`
	}) (*struct {
		Body engine.Availability `json:"body"`
	}, error) {
		start, apiErr := parseTime("start", input.Start)
		if apiErr != nil {
			return nil, apiErr
		}
		end, apiErr := parseTime("end", input.End)
		if apiErr != nil {
			return nil, apiErr
		}
		av, err := e.CheckAvailability(ctx, input.DockID, start, end)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Availability `json:"body"`
		}{Body: av}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dock-types",
		Method:      http.MethodGet,
		Path:        "/docks/types",
		Summary:     "List dock types",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.DockType `json:"body"`
	}, error) {
		items, err := e.Repo.ListDockTypes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DockType `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dock-states",
		Method:      http.MethodGet,
		Path:        "/docks/states",
		Summary:     "List dock states",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.DockState `json:"body"`
	}, error) {
		items, err := e.Repo.ListDockStates(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DockState `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "dock-maintenance-history",
		Method:      http.MethodGet,
		Path:        "/docks/{dock_id}/maintenances",
		Summary:     "Dock maintenance history",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DockID string `path:"dock_id"`
	}) (*struct {
		Body []domain.Maintenance `json:"body"`
	}, error) {
		if _, err := e.Repo.GetDock(ctx, input.DockID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListMaintenances(ctx, repo.MaintenanceFilters{DockID: input.DockID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Maintenance `json:"body"`
		}{Body: items}, nil
	})
}

func registerReservations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-reservation",
		Method:        http.MethodPost,
		Path:          "/reservations",
		Summary:       "Create reservation",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateReservationRequest `json:"body"`
	}) (*struct {
		Body domain.Reservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		start, apiErr := parseTime("window_start", input.Body.WindowStart)
		if apiErr != nil {
			return nil, apiErr
		}
		end, apiErr := parseTime("window_end", input.Body.WindowEnd)
		if apiErr != nil {
			return nil, apiErr
		}
		rv, err := e.CreateReservation(ctx, actor, engine.ReservationCreateOptions{
			DockID:           input.Body.DockID,
			WindowStart:      start,
			WindowEnd:        end,
			VehiclePlate:     input.Body.VehiclePlate,
			DriverName:       input.Body.DriverName,
			DriverPhone:      input.Body.DriverPhone,
			DriverDocument:   input.Body.DriverDocument,
			CargoType:        input.Body.CargoType,
			CargoWeight:      input.Body.CargoWeight,
			CargoDescription: input.Body.CargoDescription,
			Notes:            input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reservation `json:"body"`
		}{Body: rv}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reservations",
		Method:      http.MethodGet,
		Path:        "/reservations",
		Summary:     "List reservations",
	}, func(ctx context.Context, input *struct {
		DockID string `query:"dock_id"`
		UserID string `query:"user_id"`
		Status string `query:"status" enum:"active,completed,cancelled,"`
		From   string `query:"from" format:"date-time"`
		To     string `query:"to" format:"date-time"`
		Limit  int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Reservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListReservations(ctx, actor, repo.ReservationFilters{
			DockID: input.DockID,
			UserID: input.UserID,
			Status: input.Status,
			From:   input.From,
			To:     input.To,
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Reservation `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-reservation",
		Method:      http.MethodGet,
		Path:        "/reservations/{reservation_id}",
		Summary:     "Get reservation",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReservationID string `path:"reservation_id"`
	}) (*struct {
		Body domain.Reservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rv, err := e.GetReservation(ctx, actor, input.ReservationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reservation `json:"body"`
		}{Body: rv}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-reservation",
		Method:      http.MethodPost,
		Path:        "/reservations/{reservation_id}/cancel",
		Summary:     "Cancel reservation",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReservationID string                   `path:"reservation_id"`
		Body          CancelReservationRequest `json:"body"`
	}) (*struct {
		Body domain.Reservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rv, err := e.CancelReservation(ctx, actor, input.ReservationID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reservation `json:"body"`
		}{Body: rv}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-reservation",
		Method:      http.MethodPost,
		Path:        "/reservations/{reservation_id}/complete",
		Summary:     "Complete reservation",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReservationID string `path:"reservation_id"`
	}) (*struct {
		Body domain.Reservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rv, err := e.CompleteReservation(ctx, actor, input.ReservationID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Reservation `json:"body"`
		}{Body: rv}, nil
	})
}

func registerMaintenances(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-maintenance",
		Method:        http.MethodPost,
		Path:          "/maintenances",
		Summary:       "Schedule maintenance",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateMaintenanceRequest `json:"body"`
	}) (*struct {
		Body domain.Maintenance `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		start, apiErr := parseTime("scheduled_start", input.Body.ScheduledStart)
		if apiErr != nil {
			return nil, apiErr
		}
		end, apiErr := parseTime("scheduled_end", input.Body.ScheduledEnd)
		if apiErr != nil {
			return nil, apiErr
		}
		m, err := e.CreateMaintenance(ctx, actor, engine.MaintenanceCreateOptions{
			DockID:         input.Body.DockID,
			Kind:           input.Body.Kind,
			Description:    input.Body.Description,
			ScheduledStart: start,
			ScheduledEnd:   end,
			Technician:     input.Body.Technician,
			Cost:           input.Body.Cost,
			Notes:          input.Body.Notes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Maintenance `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-maintenances",
		Method:      http.MethodGet,
		Path:        "/maintenances",
		Summary:     "List maintenances",
	}, func(ctx context.Context, input *struct {
		DockID string `query:"dock_id"`
		Status string `query:"status" enum:"scheduled,in_progress,completed,cancelled,"`
		Kind   string `query:"kind" enum:"preventive,corrective,emergency,"`
		Limit  int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Maintenance `json:"body"`
	}, error) {
		items, err := e.Repo.ListMaintenances(ctx, repo.MaintenanceFilters{
			DockID: input.DockID,
			Status: input.Status,
			Kind:   input.Kind,
			Limit:  input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Maintenance `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-maintenance",
		Method:      http.MethodGet,
		Path:        "/maintenances/{maintenance_id}",
		Summary:     "Get maintenance",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MaintenanceID string `path:"maintenance_id"`
	}) (*struct {
		Body domain.Maintenance `json:"body"`
	}, error) {
		m, err := e.Repo.GetMaintenance(ctx, input.MaintenanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Maintenance `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-maintenance",
		Method:      http.MethodPost,
		Path:        "/maintenances/{maintenance_id}/start",
		Summary:     "Start maintenance",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MaintenanceID string `path:"maintenance_id"`
	}) (*struct {
		Body domain.Maintenance `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.StartMaintenance(ctx, actor, input.MaintenanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Maintenance `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-maintenance",
		Method:      http.MethodPost,
		Path:        "/maintenances/{maintenance_id}/complete",
		Summary:     "Complete maintenance",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MaintenanceID string                     `path:"maintenance_id"`
		Body          CompleteMaintenanceRequest `json:"body"`
	}) (*struct {
		Body domain.Maintenance `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CompleteMaintenance(ctx, actor, input.MaintenanceID, input.Body.Cost, input.Body.Notes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Maintenance `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-maintenance",
		Method:      http.MethodPost,
		Path:        "/maintenances/{maintenance_id}/cancel",
		Summary:     "Cancel maintenance",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MaintenanceID string                   `path:"maintenance_id"`
		Body          CancelMaintenanceRequest `json:"body"`
	}) (*struct {
		Body domain.Maintenance `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CancelMaintenance(ctx, actor, input.MaintenanceID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Maintenance `json:"body"`
		}{Body: m}, nil
	})
}

func registerIncidents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-incident",
		Method:        http.MethodPost,
		Path:          "/incidents",
		Summary:       "Report incident",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateIncidentRequest `json:"body"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.IncidentCreateOptions{
			DockID:        input.Body.DockID,
			ReservationID: input.Body.ReservationID,
			Kind:          input.Body.Kind,
			Description:   input.Body.Description,
			Severity:      input.Body.Severity,
		}
		if input.Body.OccurredAt != nil {
			t, apiErr := parseTime("occurred_at", *input.Body.OccurredAt)
			if apiErr != nil {
				return nil, apiErr
			}
			opts.OccurredAt = &t
		}
		in, err := e.CreateIncident(ctx, actor, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-incidents",
		Method:      http.MethodGet,
		Path:        "/incidents",
		Summary:     "List incidents",
	}, func(ctx context.Context, input *struct {
		DockID   string `query:"dock_id"`
		Status   string `query:"status" enum:"open,in_process,resolved,closed,"`
		Severity string `query:"severity" enum:"low,medium,high,critical,"`
		Limit    int    `query:"limit" minimum:"0"`
	}) (*struct {
		Body []domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListIncidents(ctx, actor, repo.IncidentFilters{
			DockID:   input.DockID,
			Status:   input.Status,
			Severity: input.Severity,
			Limit:    input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Incident `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-incident",
		Method:      http.MethodGet,
		Path:        "/incidents/{incident_id}",
		Summary:     "Get incident",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IncidentID string `path:"incident_id"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.GetIncident(ctx, actor, input.IncidentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-incident",
		Method:      http.MethodPost,
		Path:        "/incidents/{incident_id}/assign",
		Summary:     "Assign incident",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IncidentID string                `path:"incident_id"`
		Body       AssignIncidentRequest `json:"body"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.AssignIncident(ctx, actor, input.IncidentID, input.Body.AssignedTo)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-incident",
		Method:      http.MethodPost,
		Path:        "/incidents/{incident_id}/resolve",
		Summary:     "Resolve incident",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IncidentID string                 `path:"incident_id"`
		Body       ResolveIncidentRequest `json:"body"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.ResolveIncident(ctx, actor, input.IncidentID, input.Body.Resolution)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-incident",
		Method:      http.MethodPost,
		Path:        "/incidents/{incident_id}/close",
		Summary:     "Close incident",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		IncidentID string `path:"incident_id"`
	}) (*struct {
		Body domain.Incident `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		in, err := e.CloseIncident(ctx, actor, input.IncidentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Incident `json:"body"`
		}{Body: in}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "incident-summary",
		Method:      http.MethodGet,
		Path:        "/incidents/summary",
		Summary:     "Incident summary",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.IncidentSummary `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.IncidentSummary(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.IncidentSummary `json:"body"`
		}{Body: s}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "report-dock-stats",
		Method:      http.MethodGet,
		Path:        "/reports/docks",
		Summary:     "Dock statistics",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.DockStats `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		st, err := e.DockStats(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DockStats `json:"body"`
		}{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-daily-usage",
		Method:      http.MethodGet,
		Path:        "/reports/usage/daily",
		Summary:     "Daily reservation usage",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		From string `query:"from" format:"date-time" required:"true"`
		To   string `query:"to" format:"date-time" required:"true"`
	}) (*struct {
		Body []repo.DailyUsage `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		from, apiErr := parseTime("from", input.From)
		if apiErr != nil {
			return nil, apiErr
		}
		to, apiErr := parseTime("to", input.To)
		if apiErr != nil {
			return nil, apiErr
		}
		items, err := e.DailyUsage(ctx, actor, from, to)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.DailyUsage `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-dock-usage",
		Method:      http.MethodGet,
		Path:        "/reports/usage/docks",
		Summary:     "Per-dock usage",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		From string `query:"from" format:"date-time" required:"true"`
		To   string `query:"to" format:"date-time" required:"true"`
	}) (*struct {
		Body []repo.DockUsage `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		from, apiErr := parseTime("from", input.From)
		if apiErr != nil {
			return nil, apiErr
		}
		to, apiErr := parseTime("to", input.To)
		if apiErr != nil {
			return nil, apiErr
		}
		items, err := e.UsageByDock(ctx, actor, from, to)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.DockUsage `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-active-reservations",
		Method:      http.MethodGet,
		Path:        "/reports/reservations/active",
		Summary:     "Reservations in progress",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []engine.ActiveReservation `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ActiveReservations(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.ActiveReservation `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-pending-maintenance",
		Method:      http.MethodGet,
		Path:        "/reports/maintenances/pending",
		Summary:     "Pending maintenance",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Maintenance `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.PendingMaintenance(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Maintenance `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-dashboard",
		Method:      http.MethodGet,
		Path:        "/reports/dashboard",
		Summary:     "Facility dashboard",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Dashboard `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.Dashboard(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Dashboard `json:"body"`
		}{Body: d}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit events",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" minimum:"0" maximum:"500"`
		Before     int64  `query:"before" minimum:"0"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := auth.Require(actor.Role, auth.ActionEventView); err != nil {
			return nil, handleError(err)
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit, input.Before, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			resp := EventResponse{
				ID:         ev.ID,
				TS:         ev.TS,
				Type:       ev.Type,
				EntityKind: ev.EntityKind,
				EntityID:   ev.EntityID,
				ActorID:    ev.ActorID,
			}
			if ev.Payload != "" {
				_ = json.Unmarshal([]byte(ev.Payload), &resp.Payload)
			}
			out = append(out, resp)
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: out}, nil
	})
}
