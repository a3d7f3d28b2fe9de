package controllerImp

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"fieldops/entities"
	"fieldops/pkg/backend"
	"fieldops/pkg/export"
	"fieldops/pkg/panel"
)

type httpCtrl struct{ m *panel.Manager }

func New(m *panel.Manager) *httpCtrl { return &httpCtrl{m: m} }

func (h *httpCtrl) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.GET("/tasks/:id/detail", h.detail)
	g.GET("/tasks/:id/resources.xlsx", h.exportXLSX)

	g.POST("/tasks/:id/panel", h.open)
	g.GET("/tasks/:id/panel", h.view)
	g.DELETE("/tasks/:id/panel", h.close)

	g.PATCH("/tasks/:id/panel/notes", h.patchNotes)
	g.POST("/tasks/:id/panel/resources", h.addLine)
	g.PATCH("/tasks/:id/panel/resources/:line_id", h.patchLine)
	g.DELETE("/tasks/:id/panel/resources/:line_id", h.deleteLine)

	g.POST("/tasks/:id/panel/save", h.save)
	g.POST("/tasks/:id/panel/approve", h.approve)
	g.POST("/tasks/:id/panel/reject", h.reject)

	g.POST("/tasks/:id/attachments", h.uploadAttachment)
	g.DELETE("/tasks/:id/attachments/:att_id", h.deleteAttachment)
}

func paramID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func operator(c echo.Context) string {
	if v, ok := c.Get("operator").(string); ok {
		return v
	}
	return ""
}

// fail maps panel sentinels and backend failures onto HTTP statuses; backend
// messages pass through verbatim.
func fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, panel.ErrReasonRequired),
		errors.Is(err, panel.ErrInvalidQuantity),
		errors.Is(err, panel.ErrInvalidUnitCost):
		status = http.StatusBadRequest
	case errors.Is(err, panel.ErrNoSuchLine):
		status = http.StatusNotFound
	case errors.Is(err, panel.ErrConfirmRequired):
		status = http.StatusPreconditionRequired
	case errors.Is(err, panel.ErrBusy),
		errors.Is(err, panel.ErrMissingCosts),
		errors.Is(err, panel.ErrNotReviewable):
		status = http.StatusConflict
	case errors.Is(err, panel.ErrPanelClosed):
		status = http.StatusGone
	default:
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode >= 400 {
				status = apiErr.StatusCode
			} else {
				status = http.StatusBadGateway
			}
		}
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func (h *httpCtrl) panelFor(c echo.Context) (*panel.Panel, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}
	p, ok := h.m.Get(id)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("no open panel for task %d", id))
	}
	return p, nil
}

func (h *httpCtrl) detail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid task id"})
	}
	d, stale, err := h.m.Detail(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"detail": d, "stale": stale})
}

func (h *httpCtrl) open(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid task id"})
	}
	p, err := h.m.Open(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) view(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) close(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid task id"})
	}
	if !h.m.Close(id) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no open panel"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *httpCtrl) patchNotes(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	var body struct {
		InternalNotes string `json:"internal_notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := p.SetNotes(body.InternalNotes); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) addLine(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	id, err := p.AddLine()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"line_id": id})
}

func (h *httpCtrl) patchLine(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "line_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid line id"})
	}
	var patch panel.LinePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := p.UpdateLine(lineID, patch); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) deleteLine(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	lineID, err := paramID(c, "line_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid line id"})
	}
	confirm := c.QueryParam("confirm") == "true"
	if err := p.RemoveLine(c.Request().Context(), lineID, confirm); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) save(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	if err := p.Save(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	log.Printf("task %d saved by %s", p.TaskID(), operator(c))
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) approve(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	var body struct {
		AcknowledgeMissingCosts bool `json:"acknowledge_missing_costs"`
	}
	if err := c.Bind(&body); err != nil && c.Request().ContentLength > 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := p.Approve(c.Request().Context(), body.AcknowledgeMissingCosts); err != nil {
		return fail(c, err)
	}
	log.Printf("task %d approved by %s", p.TaskID(), operator(c))
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) reject(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad json"})
	}
	if err := p.Reject(c.Request().Context(), body.Reason); err != nil {
		return fail(c, err)
	}
	log.Printf("task %d rejected by %s", p.TaskID(), operator(c))
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) uploadAttachment(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	defer src.Close()
	att, err := p.Upload(c.Request().Context(), backend.Upload{
		FileName:   fh.Filename,
		Content:    src,
		Notes:      c.FormValue("notes"),
		UploadedBy: operator(c),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, att)
}

func (h *httpCtrl) deleteAttachment(c echo.Context) error {
	p, err := h.panelFor(c)
	if err != nil {
		return err
	}
	attID, err := paramID(c, "att_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid attachment id"})
	}
	confirm := c.QueryParam("confirm") == "true"
	if err := p.DeleteAttachment(c.Request().Context(), attID, confirm); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p.View())
}

func (h *httpCtrl) exportXLSX(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid task id"})
	}
	var d *entities.TaskDetail
	if p, ok := h.m.Get(id); ok {
		// export what the operator sees: the draft, not the snapshot
		v := p.View()
		d = &entities.TaskDetail{Task: v.Task, Resources: v.Ledger.Lines}
	} else {
		live, _, err := h.m.Detail(c.Request().Context(), id)
		if err != nil {
			return fail(c, err)
		}
		d = live
	}
	f, err := export.LedgerXLSX(d)
	if err != nil {
		return fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="task-%d-resources.xlsx"`, id))
	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().WriteHeader(http.StatusOK)
	return f.Write(c.Response())
}
