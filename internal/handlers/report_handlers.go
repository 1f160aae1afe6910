package handlers

import (
	"fmt"
	"net/http"
	"time"

	"pharmacare_backend/internal/database"
	"pharmacare_backend/internal/models"
	"pharmacare_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Report handlers query the database directly: the aggregates map one-to-one
// onto single SQL statements and carry no business rules worth a service layer.

// GetDashboardSummary handles GET /reports/dashboard.
func GetDashboardSummary(c *gin.Context) {
	db := database.GetDB()
	summary := models.DashboardSummary{}

	now := time.Now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfWeek := startOfToday.AddDate(0, 0, -int(now.Weekday()))
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	expiryCutoff := startOfToday.AddDate(0, 3, 0)

	err := db.QueryRow(`
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE sale_time >= $1), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE sale_time >= $2), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE sale_time >= $3), 0),
			COUNT(*) FILTER (WHERE sale_time >= $1)
		FROM sales`, startOfToday, startOfWeek, startOfMonth).Scan(
		&summary.SalesToday, &summary.SalesThisWeek, &summary.SalesThisMonth, &summary.SalesCountToday)
	if err != nil {
		utils.LogError(err, "Failed to query sales summary")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build dashboard summary", ""))
		return
	}

	err = db.QueryRow(`SELECT COUNT(*) FROM inventory_lots WHERE quantity <= reorder_level`).Scan(&summary.LowStockLotCount)
	if err != nil {
		utils.LogError(err, "Failed to count low stock lots")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build dashboard summary", ""))
		return
	}

	err = db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'active' AND expiry_date < $1),
			COUNT(*) FILTER (WHERE status = 'expired')
		FROM product_batches`, expiryCutoff).Scan(&summary.ExpiringBatchCount, &summary.ExpiredBatchCount)
	if err != nil {
		utils.LogError(err, "Failed to count batch expiry figures")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build dashboard summary", ""))
		return
	}

	err = db.QueryRow(`SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM products)`).Scan(&summary.CustomerCount, &summary.ActiveProductCount)
	if err != nil {
		utils.LogError(err, "Failed to count customers and products")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build dashboard summary", ""))
		return
	}

	c.JSON(http.StatusOK, summary)
}

func parseReportRange(c *gin.Context) (time.Time, time.Time, bool) {
	var params models.ReportRequestParams
	if err := c.ShouldBindQuery(&params); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid query parameters", err.Error()))
		return time.Time{}, time.Time{}, false
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -30)
	end := now

	if params.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", params.StartDate)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid start_date", "expected YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}
	if params.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", params.EndDate)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid end_date", "expected YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		end = parsed.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid date range", "start_date must precede end_date"))
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// GetSalesByDay handles GET /reports/sales-by-day.
func GetSalesByDay(c *gin.Context) {
	start, end, ok := parseReportRange(c)
	if !ok {
		return
	}

	db := database.GetDB()
	rows, err := db.Query(`
		SELECT TO_CHAR(sale_time, 'YYYY-MM-DD') AS day, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE sale_time >= $1 AND sale_time < $2
		GROUP BY day
		ORDER BY day`, start, end)
	if err != nil {
		utils.LogError(err, "Failed to query sales by day")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
		return
	}
	defer rows.Close()

	report := []models.SalesByDayRow{}
	for rows.Next() {
		var row models.SalesByDayRow
		if err := rows.Scan(&row.Day, &row.SaleCount, &row.Revenue); err != nil {
			utils.LogError(err, "Failed to scan sales-by-day row")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
			return
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		utils.LogError(err, "Failed to iterate sales-by-day rows")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       report,
		"start_date": start.Format("2006-01-02"),
		"end_date":   end.AddDate(0, 0, -1).Format("2006-01-02"),
	})
}

// GetTopProducts handles GET /reports/top-products.
func GetTopProducts(c *gin.Context) {
	start, end, ok := parseReportRange(c)
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit <= 0 || limit > 100 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid limit", "limit must be between 1 and 100"))
			return
		}
	}

	db := database.GetDB()
	rows, err := db.Query(`
		SELECT si.product_id, p.name, SUM(si.quantity), COALESCE(SUM(si.line_total), 0)
		FROM sale_items si
		JOIN sales s ON si.sale_id = s.id
		JOIN products p ON si.product_id = p.id
		WHERE s.sale_time >= $1 AND s.sale_time < $2
		GROUP BY si.product_id, p.name
		ORDER BY SUM(si.quantity) DESC
		LIMIT $3`, start, end, limit)
	if err != nil {
		utils.LogError(err, "Failed to query top products")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
		return
	}
	defer rows.Close()

	report := []models.TopProductRow{}
	for rows.Next() {
		var row models.TopProductRow
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.QuantitySold, &row.Revenue); err != nil {
			utils.LogError(err, "Failed to scan top-products row")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
			return
		}
		report = append(report, row)
	}
	if err := rows.Err(); err != nil {
		utils.LogError(err, "Failed to iterate top-products rows")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to build report", ""))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
