package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/camps_backend/models"
	"bitbucket.org/mmdatafocus/camps_backend/models/reports"
	"github.com/gin-gonic/gin"
)

const (
	exportFormatCSV  = "csv"
	exportFormatXLSX = "xlsx"
)

func exportFormat(c *gin.Context) (string, error) {
	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	if format == "" {
		format = exportFormatCSV
	}
	if format != exportFormatCSV && format != exportFormatXLSX {
		return "", fmt.Errorf("format must be %q or %q", exportFormatCSV, exportFormatXLSX)
	}
	return format, nil
}

func writeExport(c *gin.Context, format string, name string, data []reports.ExcelExporter, headings []string) {
	stamp := time.Now().Format("20060102")
	if format == exportFormatXLSX {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, stamp))
		if err := reports.WriteExcel(c.Writer, data, headings...); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, name, stamp))
	c.String(http.StatusOK, reports.BuildCSVExport(data, headings...))
}

func exportPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := exportFormat(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		campId, err := intQuery(c, "camp_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fromDate, err := dateQuery(c, "from_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		toDate, err := dateQuery(c, "to_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := reports.GetPaymentsReport(c.Request.Context(), campId, fromDate, toDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data := make([]reports.ExcelExporter, 0, len(rows))
		for _, row := range rows {
			data = append(data, row)
		}
		writeExport(c, format, "payments", data, reports.PaymentExportHeadings)
	}
}

func exportPledgesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := exportFormat(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		campId, err := intQuery(c, "camp_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var status *models.PledgeStatus
		if v := strings.TrimSpace(c.Query("status")); v != "" {
			s := models.PledgeStatus(v)
			status = &s
		}
		fromDate, err := dateQuery(c, "from_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		toDate, err := dateQuery(c, "to_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := reports.GetPledgesReport(c.Request.Context(), campId, status, fromDate, toDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data := make([]reports.ExcelExporter, 0, len(rows))
		for _, row := range rows {
			data = append(data, row)
		}
		writeExport(c, format, "pledges", data, reports.PledgeExportHeadings)
	}
}

func exportPurchasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := exportFormat(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		campId, err := intQuery(c, "camp_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var category *models.PurchaseCategory
		if v := strings.TrimSpace(c.Query("category")); v != "" {
			pc := models.PurchaseCategory(v)
			if !pc.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
				return
			}
			category = &pc
		}
		fromDate, err := dateQuery(c, "from_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		toDate, err := dateQuery(c, "to_date")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := reports.GetPurchasesReport(c.Request.Context(), campId, category, fromDate, toDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data := make([]reports.ExcelExporter, 0, len(rows))
		for _, row := range rows {
			data = append(data, row)
		}
		writeExport(c, format, "purchases", data, reports.PurchaseExportHeadings)
	}
}

func registrationSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		campId, err := intQuery(c, "camp_id")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		summary, err := reports.GetRegistrationSummaryReport(c.Request.Context(), campId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
