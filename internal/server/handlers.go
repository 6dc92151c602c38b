package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/VaishnaviDS/Intern-dashboard-server/internal/donors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageCreated        = "Donation record created successfully"
	messageUpdated        = "Donation updated successfully"
	messageMissingDetails = "Please fill all details"
	messageNotFound       = "User not found"
	messageServerError    = "Server error"
)

type donationRequestPayload struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Donations json.RawMessage `json:"donations"`
}

type contributionPayload struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

type donationResponsePayload struct {
	Message         string                `json:"message"`
	Name            string                `json:"name"`
	ReferralCode    string                `json:"referralCode"`
	TotalDonations  float64               `json:"totalDonations"`
	DonationHistory []contributionPayload `json:"donationHistory"`
	Rewards         []string              `json:"rewards"`
}

type historyResponsePayload struct {
	Name            string                `json:"name"`
	ReferralCode    string                `json:"referralCode"`
	Email           string                `json:"email"`
	TotalDonations  float64               `json:"totalDonations"`
	DonationHistory []contributionPayload `json:"donationHistory"`
	Rewards         []string              `json:"rewards"`
}

type statsResponsePayload struct {
	TotalUsers              int            `json:"totalUsers"`
	TotalDonations          float64        `json:"totalDonations"`
	TotalRewardsDistributed map[string]int `json:"totalRewardsDistributed"`
}

type leaderboardEntryPayload struct {
	Rank           int      `json:"rank"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	TotalDonations float64  `json:"totalDonations"`
	Rewards        []string `json:"rewards"`
	ReferralCode   string   `json:"referralCode"`
}

type bucketPayload struct {
	Label          string  `json:"label"`
	TotalDonations float64 `json:"totalDonations"`
}

func (h *httpHandler) handleSubmitDonation(c *gin.Context) {
	var request donationRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": messageMissingDetails})
		return
	}

	result, err := h.donations.SubmitDonation(c.Request.Context(), donors.DonationRequest{
		Name:   request.Name,
		Email:  request.Email,
		Amount: amountText(request.Donations),
	})
	if err != nil {
		h.writeError(c, "submit donation", err)
		return
	}

	status := http.StatusOK
	message := messageUpdated
	if result.Outcome == donors.OutcomeCreated {
		status = http.StatusCreated
		message = messageCreated
	}
	c.JSON(status, donationResponsePayload{
		Message:         message,
		Name:            result.Donor.Name,
		ReferralCode:    result.Donor.ReferralCode,
		TotalDonations:  result.Donor.Donations,
		DonationHistory: historyPayload(result.Donor.History),
		Rewards:         rewardsPayload(result.Donor.Rewards),
	})
}

func (h *httpHandler) handleHistory(c *gin.Context) {
	donor, err := h.donations.History(c.Request.Context(), c.Param("referralCode"))
	if err != nil {
		h.writeError(c, "donation history", err)
		return
	}
	c.JSON(http.StatusOK, historyResponsePayload{
		Name:            donor.Name,
		ReferralCode:    donor.ReferralCode,
		Email:           donor.Email,
		TotalDonations:  donor.Donations,
		DonationHistory: historyPayload(donor.History),
		Rewards:         rewardsPayload(donor.Rewards),
	})
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.donations.PlatformStats(c.Request.Context())
	if err != nil {
		h.writeError(c, "platform stats", err)
		return
	}
	rewards := stats.RewardsDistributed
	if rewards == nil {
		rewards = map[string]int{}
	}
	c.JSON(http.StatusOK, statsResponsePayload{
		TotalUsers:              stats.TotalUsers,
		TotalDonations:          stats.TotalDonations,
		TotalRewardsDistributed: rewards,
	})
}

func (h *httpHandler) handleLeaderboard(c *gin.Context) {
	entries, err := h.donations.Leaderboard(c.Request.Context())
	if err != nil {
		h.writeError(c, "leaderboard", err)
		return
	}
	response := make([]leaderboardEntryPayload, 0, len(entries))
	for _, entry := range entries {
		response = append(response, leaderboardEntryPayload{
			Rank:           entry.Rank,
			Name:           entry.Donor.Name,
			Email:          entry.Donor.Email,
			TotalDonations: entry.Donor.Donations,
			Rewards:        rewardsPayload(entry.Donor.Rewards),
			ReferralCode:   entry.Donor.ReferralCode,
		})
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleAggregatedDonations(c *gin.Context) {
	buckets, err := h.donations.AggregatedDonations(c.Request.Context(), donors.AggregateQuery{
		Range: c.Param("range"),
		Month: c.Query("month"),
		Year:  c.Query("year"),
	})
	if err != nil {
		h.writeError(c, "aggregated donations", err)
		return
	}
	response := make([]bucketPayload, 0, len(buckets))
	for _, bucket := range buckets {
		response = append(response, bucketPayload{Label: bucket.Label, TotalDonations: bucket.Total})
	}
	c.JSON(http.StatusOK, response)
}

// writeError maps service errors onto status codes. Only validation messages reach the client.
func (h *httpHandler) writeError(c *gin.Context, action string, err error) {
	var validationErr *donors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"message": validationErr.Message})
	case errors.Is(err, donors.ErrDonorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": messageNotFound})
	default:
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err),
		}
		var serviceErr *donors.ServiceError
		if errors.As(err, &serviceErr) {
			fields = append(fields, zap.String("code", serviceErr.Code()))
		}
		h.logger.Error("request failed", fields...)
		c.JSON(http.StatusInternalServerError, gin.H{"message": messageServerError})
	}
}

// amountText accepts a JSON number or a JSON string holding a number.
func amountText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err == nil {
		return number.String()
	}
	return string(trimmed)
}

func historyPayload(history []donors.Contribution) []contributionPayload {
	entries := make([]contributionPayload, 0, len(history))
	for _, entry := range history {
		entries = append(entries, contributionPayload{
			Amount: entry.Amount,
			Date:   formatTimestamp(entry.DonatedAt),
		})
	}
	return entries
}

func rewardsPayload(rewards []string) []string {
	if rewards == nil {
		return []string{}
	}
	return rewards
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
