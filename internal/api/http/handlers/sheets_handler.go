package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operacoes-b2b/chamado-service/internal/api/dto"
	"github.com/operacoes-b2b/chamado-service/internal/sheets"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

// SheetsHandler exposes direct spreadsheet operations for admins.
type SheetsHandler struct {
	gateway sheets.Gateway
}

// NewSheetsHandler constructs handler. Gateway may be nil when the
// integration is not configured.
func NewSheetsHandler(gateway sheets.Gateway) *SheetsHandler {
	return &SheetsHandler{gateway: gateway}
}

// Info GET /spreadsheet/info.
func (h *SheetsHandler) Info(c *fiber.Ctx) error {
	if h.gateway == nil {
		return apperrors.NewNotFound("spreadsheet integration", nil)
	}
	info, err := h.gateway.Info(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": info})
}

// ReadRange GET /spreadsheet/values/:range.
func (h *SheetsHandler) ReadRange(c *fiber.Ctx) error {
	if h.gateway == nil {
		return apperrors.NewNotFound("spreadsheet integration", nil)
	}
	rangeRef := c.Params("range")
	if rangeRef == "" {
		return apperrors.NewValidationError("range required", nil)
	}
	values, err := h.gateway.ReadRows(c.UserContext(), rangeRef)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if values == nil {
		values = [][]string{}
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"values": values}})
}

// UpdateCell PUT /spreadsheet/cell.
func (h *SheetsHandler) UpdateCell(c *fiber.Ctx) error {
	if h.gateway == nil {
		return apperrors.NewNotFound("spreadsheet integration", nil)
	}
	var req dto.UpdateCellRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Row <= 0 || req.Column < 0 {
		return apperrors.NewValidationError("row must be positive and column non-negative", nil)
	}
	if err := h.gateway.UpdateCell(c.UserContext(), req.Row, req.Column, req.Value); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true}})
}

// AppendRow POST /spreadsheet/rows.
func (h *SheetsHandler) AppendRow(c *fiber.Ctx) error {
	if h.gateway == nil {
		return apperrors.NewNotFound("spreadsheet integration", nil)
	}
	var req dto.AppendRowRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req.Values) == 0 {
		return apperrors.NewValidationError("values required", nil)
	}
	if err := h.gateway.AppendRow(c.UserContext(), req.Values); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"success": true}})
}
