package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"github.com/Mauryln/testingserver/internal/model"
	"github.com/Mauryln/testingserver/internal/service"
)

// QueryHandler exposes the read-only label/group/report endpoints.
type QueryHandler struct {
	query *service.Query
}

func NewQueryHandler(query *service.Query) *QueryHandler {
	return &QueryHandler{query: query}
}

// queryError translates the shared precondition errors; anything else is an
// upstream failure and surfaces as EXTERNAL_ERROR.
func queryError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ErrorResponse(c, 404, "No session for this user", "SESSION_NOT_FOUND", "")
	case errors.Is(err, service.ErrSessionNotReady):
		return ErrorResponse(c, 400, "Session is not ready, scan the QR code first", "SESSION_NOT_READY", "")
	default:
		return ErrorResponse(c, 500, "Query failed", "EXTERNAL_ERROR", err.Error())
	}
}

// GET /groups/:userId
func (h *QueryHandler) Groups(c echo.Context) error {
	groups, err := h.query.Groups(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return queryError(c, err)
	}
	return SuccessResponse(c, 200, "Joined groups", map[string]interface{}{
		"total":  len(groups),
		"groups": groups,
	})
}

// GET /groups/:userId/:groupId/participants
func (h *QueryHandler) GroupParticipants(c echo.Context) error {
	participants, err := h.query.GroupParticipants(c.Request().Context(), c.Param("userId"), c.Param("groupId"))
	if err != nil {
		return queryError(c, err)
	}
	return SuccessResponse(c, 200, "Group participants", map[string]interface{}{
		"total":        len(participants),
		"participants": participants,
	})
}

// GET /labels/:userId
func (h *QueryHandler) Labels(c echo.Context) error {
	labels, err := h.query.Labels(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return queryError(c, err)
	}
	return SuccessResponse(c, 200, "Business labels", map[string]interface{}{
		"total":  len(labels),
		"labels": labels,
	})
}

// GET /labels/:userId/:labelId/chats
func (h *QueryHandler) LabelChats(c echo.Context) error {
	numbers, err := h.query.LabelChats(c.Request().Context(), c.Param("userId"), c.Param("labelId"))
	if err != nil {
		return queryError(c, err)
	}
	return SuccessResponse(c, 200, "Chats under label", map[string]interface{}{
		"total":   len(numbers),
		"numbers": numbers,
	})
}

// GET /reports/:userId/:labelId/messages[?format=xlsx]
func (h *QueryHandler) ReportMessages(c echo.Context) error {
	labelID := c.Param("labelId")
	entries, err := h.query.Report(c.Request().Context(), c.Param("userId"), labelID)
	if err != nil {
		return queryError(c, err)
	}

	if c.QueryParam("format") == "xlsx" {
		return exportReportToExcel(c, entries, labelID)
	}
	return SuccessResponse(c, 200, "Label report", map[string]interface{}{
		"total":    len(entries),
		"messages": entries,
	})
}

func exportReportToExcel(c echo.Context, entries []model.ReportEntry, labelID string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return ErrorResponse(c, 500, "Failed to create Excel sheet", "EXCEL_ERROR", err.Error())
	}

	headers := []string{"No", "Number", "Message", "Sent At", "Response", "Responded At"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	for i, entry := range entries {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.Number)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.Body)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), formatUnix(entry.Timestamp))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entry.Response)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), formatUnix(entry.ResponseTimestamp))
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 15)
	f.SetColWidth(sheetName, "C", "C", 40)
	f.SetColWidth(sheetName, "D", "D", 20)
	f.SetColWidth(sheetName, "E", "E", 40)
	f.SetColWidth(sheetName, "F", "F", 20)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	filename := fmt.Sprintf("report_%s.xlsx", labelID)
	c.Response().Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	return f.Write(c.Response().Writer)
}

func formatUnix(ts int64) string {
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
