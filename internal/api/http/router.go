package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operacoes-b2b/chamado-service/internal/api/http/handlers"
	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Chamados       *handlers.ChamadosHandler
	Sheets         *handlers.SheetsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Viewers may read chamados; mutations
// require operador or admin; spreadsheet access is admin only.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Get("/validate", cfg.Auth.Validate)

	chamados := app.Group("/chamados", cfg.AuthMiddleware.Handle)

	reads := chamados.Group("", auth.RequireRole(domain.RoleAdmin, domain.RoleOperador, domain.RoleViewer))
	reads.Get("/", cfg.Chamados.Listar)
	reads.Get("/historico/:linha", cfg.Chamados.Historico)
	reads.Get("/:linha", cfg.Chamados.BuscarPorLinha)

	mutations := chamados.Group("", auth.RequireRole(domain.RoleAdmin, domain.RoleOperador))
	mutations.Post("/pegar", cfg.Chamados.Pegar)
	mutations.Post("/andamento", cfg.Chamados.AdicionarAndamento)
	mutations.Put("/status", cfg.Chamados.AtualizarStatus)
	mutations.Post("/finalizar", cfg.Chamados.Finalizar)
	mutations.Post("/transferir", cfg.Chamados.Transferir)

	spreadsheet := app.Group("/spreadsheet", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	spreadsheet.Get("/info", cfg.Sheets.Info)
	spreadsheet.Get("/values/:range", cfg.Sheets.ReadRange)
	spreadsheet.Put("/cell", cfg.Sheets.UpdateCell)
	spreadsheet.Post("/rows", cfg.Sheets.AppendRow)
}
