package rest

import (
	"net/http"

	"github.com/KretovDmitry/joint-account-service/pkg/accesslog"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/KretovDmitry/joint-account-service/pkg/unzip"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nanmu42/gzip"
)

func InitChi(logger logger.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(accesslog.Handler(logger))
	router.Use(middleware.Recoverer)
	router.Use(gzip.DefaultHandler().WrapHandler)
	router.Use(unzip.Middleware(logger))

	return router
}

type (
	MiddlewareFunc func(http.Handler) http.Handler

	ChiServerOptions struct {
		BaseRouter  chi.Router
		BaseURL     string
		Middlewares []MiddlewareFunc
	}
)

func (o ChiServerOptions) router() chi.Router {
	if o.BaseRouter == nil {
		return chi.NewRouter()
	}
	return o.BaseRouter
}
