package model

import "time"

// Event is a scheduled performance in a scene.  Creating an event
// bulk-creates one Free EventSeat per seat of the scene inside the
// same transaction, so the seat map is complete from the moment the
// event becomes visible.
//
// Fields:
//  ID          – primary key identifier.
//  SceneID     – scene the event is scheduled in.
//  Name        – event title.
//  Description – free-form description shown in the catalogue.
//  StartsAt    – scheduled start time (UTC).
type Event struct {
    ID          uint64    // events.id
    SceneID     uint64    // events.scene_id
    Name        string    // events.name
    Description string    // events.description
    StartsAt    time.Time // events.starts_at
}
