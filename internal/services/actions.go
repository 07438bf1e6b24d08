package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/go-playground/validator/v10"
)

// FailureKind tells the HTTP layer which status a failed action maps to.
type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailureConflict    FailureKind = "conflict"
	FailureState       FailureKind = "state"
	FailureNotFound    FailureKind = "not_found"
	FailureUnavailable FailureKind = "unavailable"
	FailureTimeout     FailureKind = "timeout"
	FailureBackend     FailureKind = "backend"
)

// ActionResult is what every mutation returns to the calling form.
// Mutations never panic or return bare errors.
type ActionResult struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	ID      string            `json:"id,omitempty"`
	Kind    FailureKind       `json:"-"`
}

func succeeded(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}

func failed(kind FailureKind, message string) ActionResult {
	return ActionResult{Kind: kind, Message: message}
}

func invalid(errs map[string]string) ActionResult {
	return ActionResult{
		Kind:    FailureValidation,
		Message: "Please correct the highlighted fields.",
		Errors:  errs,
	}
}

func required(field string) ActionResult {
	return invalid(map[string]string{field: "This field is required."})
}

func notConfigured() ActionResult {
	return failed(FailureUnavailable, "This action is unavailable: the service credential is not configured.")
}

// fieldError is returned from inside a transaction when a value that
// passed struct validation turns out to be unusable.
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.message
}

type slugTakenError struct {
	slug string
}

func (e *slugTakenError) Error() string {
	return fmt.Sprintf("the slug %q is already in use", e.slug)
}

var errAlreadyReviewed = errors.New("application has already been reviewed")

// failure converts an error from a write into a result. Backend messages
// are passed through; only administrators reach these paths.
func failure(op string, err error) ActionResult {
	var fe *fieldError
	if errors.As(err, &fe) {
		return invalid(map[string]string{fe.field: fe.message})
	}
	var st *slugTakenError
	if errors.As(err, &st) {
		r := failed(FailureConflict, fmt.Sprintf("The slug %q is already used by another item.", st.slug))
		r.Errors = map[string]string{"slug": "Already in use."}
		return r
	}
	if errors.Is(err, errAlreadyReviewed) {
		return failed(FailureState, "This application has already been reviewed.")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Backend(op, err)
		return failed(FailureTimeout, "The request timed out. Please try again.")
	}

	switch database.Classify(err) {
	case database.KindNotFound:
		return failed(FailureNotFound, "Record not found.")
	case database.KindConflict:
		logger.Backend(op, err)
		return failed(FailureConflict, err.Error())
	case database.KindUnavailable:
		return notConfigured()
	}
	logger.Backend(op, err)
	return failed(FailureBackend, err.Error())
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct returns field-keyed messages, or nil when s is valid.
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.Namespace())
		if _, seen := out[key]; !seen {
			out[key] = fieldMessage(fe)
		}
	}
	return out
}

// fieldKey drops struct and embedded type names from a validator
// namespace, leaving the JSON path, e.g. "resources[0].title".
func fieldKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper(rune(p[0])) {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return namespace
	}
	return strings.Join(kept, ".")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Must be a valid email address."
	case "url":
		return "Must be a valid URL."
	case "uuid":
		return "Must be a valid id."
	case "oneof":
		return "Must be one of: " + fe.Param() + "."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	case "min":
		return "Must be at least " + fe.Param() + "."
	}
	return "Is invalid."
}

// parseOptionalDate accepts a date or an RFC 3339 timestamp.
func parseOptionalDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}

// AdminService holds the privileged mutations. Each one checks for the
// service credential, validates its input, runs under MUTATION_TIMEOUT
// and invalidates the cache tags of what it wrote.
type AdminService struct {
	backend *database.Backend
	config  *config.Config
	cache   cache.Store
	auth    *AuthService
	mailer  Mailer
	now     func() time.Time
}

func NewAdminService(backend *database.Backend, cfg *config.Config, store cache.Store, auth *AuthService, mailer Mailer) *AdminService {
	return &AdminService{
		backend: backend,
		config:  cfg,
		cache:   store,
		auth:    auth,
		mailer:  mailer,
		now:     time.Now,
	}
}

func (s *AdminService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withMutationTimeout(ctx, s.config)
}

func withMutationTimeout(ctx context.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.MutationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.MutationTimeout)
}

func invalidate(ctx context.Context, store cache.Store, tags ...string) {
	if store == nil {
		return
	}
	store.Invalidate(context.WithoutCancel(ctx), tags...)
}
