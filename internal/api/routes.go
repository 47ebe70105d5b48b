package api

import (
	"net/http"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) []string {
	return routes.Register(
		mux,
		domain.Runs.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Inventory.Handler().Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)
}
