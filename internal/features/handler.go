package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// earthRadiusKM is used by the travel/great-circle-distance feature.
const earthRadiusKM = 6371.0

// StatHandler computes a single named feature for a (home, away, season,
// date) tuple from a GameSource's preloaded state. It holds no state
// of its own; every call is deterministic in its inputs.
type StatHandler struct{}

func NewStatHandler() *StatHandler { return &StatHandler{} }

// CalculateFeature parses key, resolves it against src for the given
// matchup, and returns the home/away/diff value. Only a malformed key
// string fails; every other invalid-but-well-formed combination resolves
// to 0.0.
func (h *StatHandler) CalculateFeature(rawKey string, home, away, season string, date time.Time, venueGUID string, src GameSource) (float64, error) {
	k, err := ParseKey(rawKey)
	if err != nil {
		return 0, err
	}
	return h.Evaluate(k, home, away, season, date, venueGUID, src), nil
}

// Evaluate computes an already-parsed key's value. Used directly by callers
// (e.g. the master table builder's feature catalog) that parse keys once
// and evaluate them many times.
func (h *StatHandler) Evaluate(k Key, home, away, season string, date time.Time, venueGUID string, src GameSource) float64 {
	var perTeam func(team string) float64

	switch k.Stat {
	case "elo":
		if k.Period.Kind != PeriodNone {
			return 0
		}
		perTeam = func(team string) float64 { return src.EloBefore(team, season, date) }
	case "rest_days":
		if k.Period.Kind != PeriodNone {
			return 0
		}
		perTeam = func(team string) float64 {
			days, _ := src.RestDaysBefore(team, season, date)
			return float64(days)
		}
	case "b2b":
		if k.Period.Kind != PeriodNone {
			return 0
		}
		perTeam = func(team string) float64 {
			_, b2b := src.RestDaysBefore(team, season, date)
			if b2b {
				return 1
			}
			return 0
		}
	case "travel":
		if k.Period.Kind == PeriodNone {
			return 0
		}
		perTeam = func(team string) float64 { return h.travelDistance(k, team, season, date, src) }
	default:
		if k.Period.Kind == PeriodNone {
			// Windowed team stats have no "none" period: only single-state
			// stats (elo/rest_days/b2b) above may use it.
			return 0
		}
		perTeam = func(team string) float64 { return h.teamValue(k, team, season, date, src) }
	}

	homeVal := perTeam(home)
	switch k.Side {
	case SideHome:
		return homeVal
	case SideAway:
		return perTeam(away)
	case SideDiff:
		return homeVal - perTeam(away)
	default:
		return 0
	}
}

// teamValue computes a windowed, weighted stat value for one team.
func (h *StatHandler) teamValue(k Key, team, season string, date time.Time, src GameSource) float64 {
	switch k.Weight.Kind {
	case WeightRaw:
		return h.sumWindow(k, team, season, date, src)
	case WeightAvg:
		return h.avgWindow(k, team, season, date, src)
	case WeightStd:
		return h.stdWindow(k, team, season, date, src)
	case WeightRel:
		avg := h.avgWindow(k, team, season, date, src)
		mean, ok := src.LeagueSeasonMean(k.Stat, season)
		if !ok || mean == 0 {
			return 0
		}
		return avg / mean
	case WeightBlend:
		var total float64
		for _, term := range k.Weight.Blend {
			sub := Key{Stat: k.Stat, Period: term.Period, Weight: Weight{Kind: WeightAvg}, Side: k.Side}
			total += term.Proportion * h.avgWindow(sub, team, season, date, src)
		}
		return total
	default:
		return 0
	}
}

func (h *StatHandler) values(k Key, team, season string, date time.Time, src GameSource) []float64 {
	lines := src.TeamWindow(team, season, date, k.Period)
	if len(lines) == 0 {
		return nil
	}
	out := make([]float64, 0, len(lines))
	for _, l := range lines {
		v, ok := statValue(k, l)
		if !ok {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (h *StatHandler) sumWindow(k Key, team, season string, date time.Time, src GameSource) float64 {
	vals := h.values(k, team, season, date, src)
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func (h *StatHandler) avgWindow(k Key, team, season string, date time.Time, src GameSource) float64 {
	vals := h.values(k, team, season, date, src)
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func (h *StatHandler) stdWindow(k Key, team, season string, date time.Time, src GameSource) float64 {
	vals := h.values(k, team, season, date, src)
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

// travelDistance computes the mean great-circle distance between
// consecutive game venues for a team across its trailing window.
func (h *StatHandler) travelDistance(k Key, team, season string, date time.Time, src GameSource) float64 {
	lines := src.TeamWindow(team, season, date, k.Period)
	if len(lines) < 2 {
		return 0
	}
	var total float64
	var count int
	for i := 1; i < len(lines); i++ {
		lat1, lon1, ok1 := src.VenueLatLon(lines[i-1].VenueGUID)
		lat2, lon2, ok2 := src.VenueLatLon(lines[i].VenueGUID)
		if !ok1 || !ok2 {
			continue
		}
		total += haversineKM(lat1, lon1, lat2, lon2)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
	math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
