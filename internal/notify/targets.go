package notify

import (
	"github.com/sirupsen/logrus"

	"formazing-backend/internal/model"
)

// ResolveKeys decides which configured groups receive a notification for a
// training with the given areas and period. The result starts with the main
// group (when configured), never contains duplicates and is empty for OUT
// trainings. Area tags without a configured group are reported through skipped.
func ResolveKeys(areas []string, period string, configured func(string) bool, standardAreas []string) (keys []string, skipped []string) {
	if period == model.PeriodOut {
		return []string{}, nil
	}

	keys = make([]string, 0, len(standardAreas)+1)
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	if configured(model.MainGroup) {
		add(model.MainGroup)
	}

	if containsAll(areas) {
		for _, a := range standardAreas {
			if configured(a) {
				add(a)
			}
		}
		return keys, nil
	}

	for _, a := range areas {
		if a == model.MainGroup {
			continue
		}
		if !configured(a) {
			skipped = append(skipped, a)
			continue
		}
		add(a)
	}
	return keys, skipped
}

// FeedbackKeys is ResolveKeys without the main group: feedback requests only go to area groups.
func FeedbackKeys(areas []string, period string, configured func(string) bool, standardAreas []string) ([]string, []string) {
	keys, skipped := ResolveKeys(areas, period, configured, standardAreas)
	out := keys[:0:0]
	for _, k := range keys {
		if k != model.MainGroup {
			out = append(out, k)
		}
	}
	return out, skipped
}

func containsAll(areas []string) bool {
	for _, a := range areas {
		if a == model.AreaAll {
			return true
		}
	}
	return false
}

// Resolver maps trainings to configured messaging targets.
type Resolver struct {
	groups        map[string]model.Target
	standardAreas []string
	log           logrus.FieldLogger
}

// NewResolver creates a Resolver over the configured groups.
func NewResolver(groups map[string]model.Target, standardAreas []string, log logrus.FieldLogger) *Resolver {
	g := make(map[string]model.Target, len(groups))
	for k, t := range groups {
		t.Key = k
		g[k] = t
	}
	return &Resolver{groups: g, standardAreas: standardAreas, log: log}
}

func (r *Resolver) configured(key string) bool {
	_, ok := r.groups[key]
	return ok
}

// Targets returns the destinations of a training announcement.
func (r *Resolver) Targets(t *model.Training) []model.Target {
	keys, skipped := ResolveKeys(t.Areas, t.Period, r.configured, r.standardAreas)
	r.warnSkipped(t, skipped)
	return r.lookup(keys)
}

// FeedbackTargets returns the destinations of a feedback request.
func (r *Resolver) FeedbackTargets(t *model.Training) []model.Target {
	keys, skipped := FeedbackKeys(t.Areas, t.Period, r.configured, r.standardAreas)
	r.warnSkipped(t, skipped)
	return r.lookup(keys)
}

func (r *Resolver) lookup(keys []string) []model.Target {
	targets := make([]model.Target, 0, len(keys))
	for _, k := range keys {
		targets = append(targets, r.groups[k])
	}
	return targets
}

func (r *Resolver) warnSkipped(t *model.Training, skipped []string) {
	for _, area := range skipped {
		r.log.WithFields(logrus.Fields{
			"training_id": t.ID,
			"area":        area,
		}).Warn("area has no configured messaging group; skipping")
	}
}
