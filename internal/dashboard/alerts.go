// Package dashboard aggregates workspace stats and upcoming renewal alerts
// for the caller's accepted workspaces.
package dashboard

import (
	"sort"
	"time"

	"github.com/nerlude/backend/internal/models"
)

// Alert severity levels, highest first.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

const alertHorizonDays = 30

// Alert warns about a service renewal due within the alert horizon.
type Alert struct {
	ServiceID   string  `json:"service_id"`
	WorkspaceID string  `json:"workspace_id"`
	ServiceName string  `json:"service_name"`
	Provider    string  `json:"provider,omitempty"`
	MonthlyCost float64 `json:"monthly_cost"`
	RenewalDate string  `json:"renewal_date"`
	DaysLeft    int     `json:"days_left"`
	Severity    string  `json:"severity"`
}

var severityRank = map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}

// BuildAlerts derives renewal alerts from services. Renewals already past or
// more than 30 days out are excluded. 7 days or less is high, 14 or less is
// medium, the rest low. Results are ordered by severity, then soonest first.
func BuildAlerts(services []models.Service, now time.Time) []Alert {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	alerts := []Alert{}
	for _, s := range services {
		if s.RenewalDate == nil {
			continue
		}
		r := *s.RenewalDate
		renewal := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
		days := int(renewal.Sub(today).Hours() / 24)
		if days < 0 || days > alertHorizonDays {
			continue
		}
		severity := SeverityLow
		switch {
		case days <= 7:
			severity = SeverityHigh
		case days <= 14:
			severity = SeverityMedium
		}
		alerts = append(alerts, Alert{
			ServiceID:   s.ID.String(),
			WorkspaceID: s.WorkspaceID.String(),
			ServiceName: s.Name,
			Provider:    s.Provider,
			MonthlyCost: s.MonthlyCost,
			RenewalDate: renewal.Format("2006-01-02"),
			DaysLeft:    days,
			Severity:    severity,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if severityRank[alerts[i].Severity] != severityRank[alerts[j].Severity] {
			return severityRank[alerts[i].Severity] < severityRank[alerts[j].Severity]
		}
		return alerts[i].DaysLeft < alerts[j].DaysLeft
	})
	return alerts
}
