package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerlude/backend/internal/models"
)

func svc(name string, renewalInDays *int, now time.Time) models.Service {
	s := models.Service{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		Name:        name,
		MonthlyCost: 10,
	}
	if renewalInDays != nil {
		d := now.AddDate(0, 0, *renewalInDays)
		s.RenewalDate = &d
	}
	return s
}

func days(n int) *int { return &n }

func TestBuildAlertsSeverity(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		in       *int
		want     string
		excluded bool
	}{
		{"due today", days(0), SeverityHigh, false},
		{"in a week", days(7), SeverityHigh, false},
		{"in eight days", days(8), SeverityMedium, false},
		{"in two weeks", days(14), SeverityMedium, false},
		{"in three weeks", days(21), SeverityLow, false},
		{"at the horizon", days(30), SeverityLow, false},
		{"past the horizon", days(31), "", true},
		{"already renewed", days(-1), "", true},
		{"no renewal date", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := BuildAlerts([]models.Service{svc(tt.name, tt.in, now)}, now)
			if tt.excluded {
				if len(alerts) != 0 {
					t.Fatalf("got %d alerts, want none", len(alerts))
				}
				return
			}
			if len(alerts) != 1 {
				t.Fatalf("got %d alerts, want 1", len(alerts))
			}
			if alerts[0].Severity != tt.want {
				t.Errorf("severity = %q, want %q", alerts[0].Severity, tt.want)
			}
		})
	}
}

func TestBuildAlertsOrdering(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	services := []models.Service{
		svc("low-late", days(28), now),
		svc("medium", days(12), now),
		svc("high-late", days(6), now),
		svc("high-soon", days(2), now),
		svc("low-soon", days(20), now),
	}
	alerts := BuildAlerts(services, now)
	got := make([]string, len(alerts))
	for i, a := range alerts {
		got[i] = a.ServiceName
	}
	want := []string{"high-soon", "high-late", "medium", "low-soon", "low-late"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestBuildAlertsDayBoundaryIgnoresTimeOfDay(t *testing.T) {
	// A renewal stored at midnight must count as 7 days out even when the
	// request arrives late in the evening.
	now := time.Date(2026, 3, 10, 23, 45, 0, 0, time.UTC)
	renewal := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)
	s := models.Service{ID: uuid.New(), WorkspaceID: uuid.New(), Name: "edge", RenewalDate: &renewal}

	alerts := BuildAlerts([]models.Service{s}, now)
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].DaysLeft != 7 || alerts[0].Severity != SeverityHigh {
		t.Errorf("days=%d severity=%s, want 7/high", alerts[0].DaysLeft, alerts[0].Severity)
	}
}
