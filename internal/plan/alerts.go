package plan

import (
	"fmt"
	"sort"
	"strings"

	"metrosched/internal/model"
	"metrosched/internal/opt"
)

// deriveAlerts turns run-level flags, recorded soft violations and fleet
// certificate state into operator advisories. Ordering is fixed: run-level
// alerts first, then per-trainset alerts by trainset id.
func deriveAlerts(fleet []model.Trainset, outcome *opt.Outcome) []model.Alert {
	var alerts []model.Alert

	if outcome.Infeasible {
		alerts = append(alerts, model.Alert{
			Severity: model.SeverityCritical,
			Type:     model.AlertInfeasibleRun,
			Message:  fmt.Sprintf("schedule violates %d hard constraint(s); review fleet availability", outcome.Best.Fitness.HardViolations),
		})
	}
	if outcome.Degraded {
		alerts = append(alerts, model.Alert{
			Severity: model.SeverityWarning,
			Type:     model.AlertDegradedRun,
			Message:  "all search algorithms failed; schedule is the greedy baseline",
		})
	}

	var perTrain []model.Alert
	for _, v := range outcome.Violations {
		if v.Kind != opt.ViolationSoft {
			continue
		}
		// the fleet scan below owns certificate alerts
		if strings.HasSuffix(v.Description, "certificate expiring soon") {
			continue
		}
		perTrain = append(perTrain, model.Alert{
			TrainsetID: v.TrainsetID,
			Severity:   model.SeverityWarning,
			Type:       model.AlertSoftConstraint,
			Message:    v.Description,
		})
	}
	for i := range fleet {
		for _, c := range fleet[i].Certificates {
			if c.Status != model.CertExpiringSoon {
				continue
			}
			msg := fmt.Sprintf("%s certificate expiring soon", c.Department)
			if c.ExpiresAt != "" {
				msg += " (expires " + c.ExpiresAt + ")"
			}
			perTrain = append(perTrain, model.Alert{
				TrainsetID: fleet[i].ID,
				Severity:   model.SeverityWarning,
				Type:       model.AlertCertExpiring,
				Message:    msg,
			})
		}
	}
	sort.SliceStable(perTrain, func(a, b int) bool {
		if perTrain[a].TrainsetID != perTrain[b].TrainsetID {
			return perTrain[a].TrainsetID < perTrain[b].TrainsetID
		}
		return perTrain[a].Type < perTrain[b].Type
	})
	return append(alerts, perTrain...)
}
