package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/coordinator"
	"github.com/sysu-ecnc-dev/shift-planner/backend/internal/validation"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	translator  ut.Translator
	sessions    *coordinator.Manager
	constraints *constraint.Manager
	checker     *validation.Service

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, sessions *coordinator.Manager, constraints *constraint.Manager, checker *validation.Service) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		translator:  trans,
		sessions:    sessions,
		constraints: constraints,
		checker:     checker,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 会话管理
	h.Mux.Post("/sessions", h.OpenSession)

	// 以下 API 必须携带有效的会话令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.session)

		r.Route("/planning", func(r chi.Router) {
			r.Get("/state", h.GetState)
			r.Get("/violations", h.GetViolations)
			r.Post("/validate", h.ValidateAssignment)
			r.Post("/force-save", h.ForceSave)
			r.Post("/connectivity", h.SetConnectivity)

			r.Route("/assignments", func(r chi.Router) {
				r.Post("/", h.AddAssignment)
				r.Patch("/{id}", h.UpdateAssignment)
				r.Delete("/{id}", h.DeleteAssignment)
			})

			r.Post("/conflicts/{id}/resolve", h.ResolveConflict)
		})

		r.Delete("/sessions", h.CloseSession)
	})
}
