package api

import (
	"net/http"
	"strings"

	"github.com/okian/covita/internal/domain/model"
)

const (
	paramMetric = "metric"
	paramMode   = "mode"
	paramScale  = "scale"
	paramRegion = "region"
)

// parseRequest reads metric, mode and region from the query string.
// A missing metric means the default one. An absent region key means the
// preset; a region key with only empty values selects nothing.
func parseRequest(r *http.Request, preset []string) (model.Request, error) {
	q := r.URL.Query()

	metric := model.DefaultMetric
	if name := strings.TrimSpace(q.Get(paramMetric)); name != "" {
		m, err := model.ParseMetric(name)
		if err != nil {
			return model.Request{}, err
		}
		metric = m
	}

	mode, err := model.ParseMode(q.Get(paramMode))
	if err != nil {
		return model.Request{}, err
	}

	regions := append([]string(nil), preset...)
	if values, ok := q[paramRegion]; ok {
		regions = splitRegions(values)
	}

	return model.Request{Metric: metric, Mode: mode, Regions: regions}, nil
}

func parseScale(r *http.Request) (model.Scale, error) {
	return model.ParseScale(r.URL.Query().Get(paramScale))
}

// splitRegions accepts both repeated keys and comma separated lists.
func splitRegions(values []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
