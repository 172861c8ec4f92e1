package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/innovative-enterprises/whatsapp-agent/internal/api/dto"
	"github.com/innovative-enterprises/whatsapp-agent/internal/models"
)

// CronSecretHeader guards the manual reminder trigger.
const CronSecretHeader = "X-Cron-Secret"

type ReminderRunner interface {
	RunDailyCheck(ctx context.Context) (*models.ReminderSummary, error)
}

type ReminderHandler struct {
	runner     ReminderRunner
	cronSecret string
}

// NewReminderHandler builds the manual trigger. An empty cronSecret leaves the
// endpoint open.
func NewReminderHandler(runner ReminderRunner, cronSecret string) *ReminderHandler {
	return &ReminderHandler{runner: runner, cronSecret: cronSecret}
}

// RunReminders handles POST /api/v1/reminders/run
func (h *ReminderHandler) RunReminders(c *gin.Context) {
	if h.cronSecret != "" {
		got := c.GetHeader(CronSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.cronSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  models.ErrCodeUnauthorized,
			})
			return
		}
	}

	summary, err := h.runner.RunDailyCheck(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.ReminderRunResponse{
		Success:           true,
		NotificationsSent: summary.NotificationsSent,
		Failed:            summary.Failed,
		Details:           make([]dto.ReminderDTO, 0, len(summary.Details)),
		RanAt:             summary.RanAt.UTC().Format(time.RFC3339),
	}
	for _, d := range summary.Details {
		resp.Details = append(resp.Details, dto.ReminderDTO{
			Name:            d.Name,
			PhoneNumber:     d.PhoneNumber,
			Tier:            string(d.Tier),
			Expiry:          d.Expiry.Format("2006-01-02"),
			DaysUntilExpiry: d.DaysUntilExpiry,
			Status:          d.Status,
			Error:           d.Error,
		})
	}
	respondSuccess(c, http.StatusOK, resp)
}

func (h *ReminderHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/v1/reminders/run", h.RunReminders)
}
