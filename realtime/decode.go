package realtime

import (
	"context"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/proto"

	"github.com/NathanNam/caltrain-commuter-app/errors"
	"github.com/NathanNam/caltrain-commuter-app/observability"
)

// Decode returns the trip updates in data, in feed order.
func Decode(data []byte) ([]TripUpdate, error) {
	feed, err := DecodeFeed(data)
	if err != nil {
		return nil, err
	}
	return feed.TripUpdates, nil
}

// DecodeContext is Decode inside a trace span.
func DecodeContext(ctx context.Context, data []byte) ([]TripUpdate, error) {
	_, span := observability.StartSpan(ctx, observability.SpanFeedDecode)
	defer span.End()

	updates, err := Decode(data)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(observability.AttrEntities, len(updates)))
	return updates, nil
}

// DecodeFeed decodes a complete feed message.
func DecodeFeed(data []byte) (*Feed, error) {
	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, errors.Parse("gtfs-realtime feed", err).WithDetail("bytes", len(data))
	}

	feed := &Feed{
		TripUpdates: []TripUpdate{},
		Alerts:      []Alert{},
	}
	if ts := msg.GetHeader().GetTimestamp(); ts > 0 {
		feed.Timestamp = time.Unix(int64(ts), 0).UTC()
	}

	for _, entity := range msg.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}
		if tu := entity.GetTripUpdate(); tu != nil {
			feed.TripUpdates = append(feed.TripUpdates, tripUpdate(tu))
		}
		if a := entity.GetAlert(); a != nil {
			feed.Alerts = append(feed.Alerts, alert(entity.GetId(), a))
		}
	}
	return feed, nil
}

func tripUpdate(tu *gtfs.TripUpdate) TripUpdate {
	trip := tu.GetTrip()
	out := TripUpdate{
		TripID:    trip.GetTripId(),
		RouteID:   trip.GetRouteId(),
		StartDate: trip.GetStartDate(),
		StartTime: trip.GetStartTime(),
		Canceled:  trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED,
	}

	stops := tu.GetStopTimeUpdate()
	out.StopUpdates = make([]StopUpdate, 0, len(stops))
	for _, stu := range stops {
		su := StopUpdate{
			StopID:       stu.GetStopId(),
			StopSequence: stu.GetStopSequence(),
			Arrival:      stopTimeEvent(stu.GetArrival()),
			Departure:    stopTimeEvent(stu.GetDeparture()),
			Relationship: relationship(stu.GetScheduleRelationship()),
		}
		if out.Canceled {
			su.Relationship = Canceled
		}
		out.StopUpdates = append(out.StopUpdates, su)
	}
	return out
}

func stopTimeEvent(ev *gtfs.TripUpdate_StopTimeEvent) StopTimeEvent {
	if ev == nil {
		return StopTimeEvent{}
	}
	return StopTimeEvent{
		Delay:    ev.GetDelay(),
		Time:     ev.GetTime(),
		HasDelay: ev.Delay != nil,
		HasTime:  ev.Time != nil,
	}
}

func relationship(r gtfs.TripUpdate_StopTimeUpdate_ScheduleRelationship) Relationship {
	switch r {
	case gtfs.TripUpdate_StopTimeUpdate_SKIPPED:
		return Skipped
	case gtfs.TripUpdate_StopTimeUpdate_NO_DATA:
		return NoData
	default:
		return Scheduled
	}
}
