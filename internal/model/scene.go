package model

// Scene describes a venue floor plan.  Seats and price zones are
// authored against a scene once and then shared by every event
// scheduled in it.  The layout itself is immutable from this
// service's point of view; only the seed tooling creates scenes.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name of the venue room.
//  MaxRows    – number of seat rows in the grid.
//  MaxColumns – number of seat columns in the grid.
type Scene struct {
    ID         uint64 // scenes.id
    Name       string // scenes.name
    MaxRows    uint32 // scenes.max_rows
    MaxColumns uint32 // scenes.max_columns
}

// PriceZone groups seats of a scene under one price.  Reassigning a
// seat to a different zone is how its price changes; the seat row
// keeps a denormalized copy of the price for fast totals.
//
// Fields:
//  ID       – primary key identifier.
//  SceneID  – owning scene.
//  Name     – zone label (e.g. "Balcony").
//  PriceCents – price applied to seats in this zone.
//  ColorHex – display color used by seat-map clients.
type PriceZone struct {
    ID         uint64 // price_zones.id
    SceneID    uint64 // price_zones.scene_id
    Name       string // price_zones.name
    PriceCents uint32 // price_zones.price_cents
    ColorHex   string // price_zones.color_hex
}
