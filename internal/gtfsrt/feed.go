// Package gtfsrt exports snapshots as GTFS-Realtime VehiclePositions feeds.
package gtfsrt

import (
	"FleetTrack/internal/model"
	"FleetTrack/internal/snapshot"
	"strconv"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Version is the GTFS-Realtime spec version written in feed headers.
const Version = "2.0"

// Build converts snap into a full-dataset FeedMessage with one VehiclePosition
// entity per vehicle. A nil snapshot yields a header-only feed.
func Build(snap *snapshot.Snapshot) *gtfsrtpb.FeedMessage {
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(Version),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
		},
	}
	if snap == nil {
		return fm
	}
	fm.Header.Timestamp = proto.Uint64(uint64(snap.Generated.Unix()))
	fm.Entity = make([]*gtfsrtpb.FeedEntity, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		fm.Entity = append(fm.Entity, entity(v))
	}
	return fm
}

// Marshal encodes Build(snap) in protobuf wire format.
func Marshal(snap *snapshot.Snapshot) ([]byte, error) {
	return proto.Marshal(Build(snap))
}

func entity(v model.VehicleRecord) *gtfsrtpb.FeedEntity {
	vp := &gtfsrtpb.VehiclePosition{
		Vehicle: &gtfsrtpb.VehicleDescriptor{
			Id:    proto.String(v.Identifiers.DeviceID),
			Label: proto.String(v.Name),
		},
		Position: &gtfsrtpb.Position{
			Latitude:  proto.Float32(float32(v.Location.Lat)),
			Longitude: proto.Float32(float32(v.Location.Lng)),
			Bearing:   proto.Float32(float32(v.Heading)),
			Speed:     proto.Float32(float32(v.SpeedKmh / 3.6)),
		},
		Timestamp: proto.Uint64(uint64(v.LastUpdate.Unix())),
	}
	if v.Identifiers.LicensePlate != "" {
		vp.Vehicle.LicensePlate = proto.String(v.Identifiers.LicensePlate)
	}
	if v.Route != nil {
		vp.Trip = &gtfsrtpb.TripDescriptor{RouteId: proto.String(v.Route.ID)}
	}
	switch v.Status {
	case model.StatusMoving:
		vp.CurrentStatus = gtfsrtpb.VehiclePosition_IN_TRANSIT_TO.Enum()
	default:
		vp.CurrentStatus = gtfsrtpb.VehiclePosition_STOPPED_AT.Enum()
	}
	if v.Phase == "Congested" {
		vp.CongestionLevel = gtfsrtpb.VehiclePosition_CONGESTION.Enum()
	}
	return &gtfsrtpb.FeedEntity{
		Id:      proto.String(strconv.Itoa(v.ID)),
		Vehicle: vp,
	}
}
