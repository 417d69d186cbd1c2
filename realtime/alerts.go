package realtime

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
)

func alert(id string, a *gtfs.Alert) Alert {
	out := Alert{
		ID:          id,
		Header:      text(a.GetHeaderText()),
		Description: text(a.GetDescriptionText()),
		Cause:       a.GetCause().String(),
		Effect:      a.GetEffect().String(),
	}
	for _, p := range a.GetActivePeriod() {
		out.Periods = append(out.Periods, ActivePeriod{
			Start: unixOrZero(p.GetStart()),
			End:   unixOrZero(p.GetEnd()),
		})
	}
	for _, e := range a.GetInformedEntity() {
		if id := e.GetRouteId(); id != "" {
			out.RouteIDs = appendUnique(out.RouteIDs, id)
		}
		if id := e.GetStopId(); id != "" {
			out.StopIDs = appendUnique(out.StopIDs, id)
		}
		if id := e.GetTrip().GetTripId(); id != "" {
			out.TripIDs = appendUnique(out.TripIDs, id)
		}
	}
	return out
}

// text prefers the untagged or English translation, else the first.
func text(ts *gtfs.TranslatedString) string {
	var first string
	for _, tr := range ts.GetTranslation() {
		switch tr.GetLanguage() {
		case "", "en", "en-US":
			return tr.GetText()
		}
		if first == "" {
			first = tr.GetText()
		}
	}
	return first
}

func unixOrZero(sec uint64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
