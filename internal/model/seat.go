package model

// Seat is one physical seat of a scene.  The record is immutable
// geometry plus a denormalized price; availability is never stored
// here but on the per-event EventSeat row.  A seat is not deleted
// while any reservation snapshot still references it.
//
// Fields:
//  ID          – primary key identifier.
//  SceneID     – scene this seat belongs to.
//  PriceZoneID – zone that determines the price.
//  Row         – zero-based row position in the grid.
//  Column      – zero-based column position in the grid.
//  Number      – printable seat number (e.g. "B12").
//  PriceCents  – current price, copied from the zone.
type Seat struct {
    ID          uint64 // seats.id
    SceneID     uint64 // seats.scene_id
    PriceZoneID uint64 // seats.price_zone_id
    Row         uint32 // seats.row_no
    Column      uint32 // seats.col_no
    Number      string // seats.number
    PriceCents  uint32 // seats.price_cents
}
