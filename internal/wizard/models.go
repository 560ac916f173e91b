package wizard

import (
	"github.com/google/uuid"
)

// PropertyKind selects the wizard variant
type PropertyKind string

const (
	KindHostel PropertyKind = "hostel"
	KindResort PropertyKind = "resort"
	KindVilla  PropertyKind = "villa"
)

// PlaceType classifies a nearby place
type PlaceType string

const (
	PlaceTourist    PlaceType = "tourist"
	PlaceAirport    PlaceType = "airport"
	PlaceMarket     PlaceType = "market"
	PlaceRailway    PlaceType = "railway"
	PlaceBusStop    PlaceType = "bus_stop"
	PlaceHospital   PlaceType = "hospital"
	PlaceRestaurant PlaceType = "restaurant"
	PlaceOther      PlaceType = "other"
)

var placeTypes = map[PlaceType]bool{
	PlaceTourist: true, PlaceAirport: true, PlaceMarket: true, PlaceRailway: true,
	PlaceBusStop: true, PlaceHospital: true, PlaceRestaurant: true, PlaceOther: true,
}

// NormalizePlaceType maps a free-form category onto a known place type
func NormalizePlaceType(s string) PlaceType {
	t := PlaceType(s)
	if placeTypes[t] {
		return t
	}
	switch s {
	case "attraction", "landmark", "museum", "park":
		return PlaceTourist
	case "station", "train_station":
		return PlaceRailway
	case "bus_station", "bus":
		return PlaceBusStop
	case "clinic", "pharmacy":
		return PlaceHospital
	case "cafe", "food":
		return PlaceRestaurant
	case "shopping", "mall", "supermarket":
		return PlaceMarket
	}
	return PlaceOther
}

// InventoryType describes what a single unit of inventory is
type InventoryType string

const (
	InventoryBed    InventoryType = "bed"
	InventoryRoom   InventoryType = "room"
	InventoryEntire InventoryType = "entire"
)

// RoomCategory describes how guests share a unit
type RoomCategory string

const (
	CategoryShared  RoomCategory = "shared"
	CategoryPrivate RoomCategory = "private"
	CategoryEntire  RoomCategory = "entire"
)

type Address struct {
	Country     string `json:"country"`
	State       string `json:"state"`
	City        string `json:"city"`
	Area        string `json:"area"`
	FullAddress string `json:"fullAddress"`
	Pincode     string `json:"pincode"`
}

// Location holds [lng, lat] as strings while the form is being edited
type Location struct {
	Type        string   `json:"type"`
	Coordinates []string `json:"coordinates"`
}

type NearbyPlace struct {
	Name       string    `json:"name"`
	Type       PlaceType `json:"type"`
	DistanceKm string    `json:"distanceKm"`
}

type Document struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	FileURL string `json:"fileUrl"`
}

// PropertyDraft is the root of the editable form tree. Values are replaced,
// never mutated in place.
type PropertyDraft struct {
	PropertyName       string        `json:"propertyName"`
	Description        string        `json:"description"`
	ShortDescription   string        `json:"shortDescription"`
	ContactNumber      string        `json:"contactNumber"`
	Category           string        `json:"category"`
	CoverImage         string        `json:"coverImage"`
	PropertyImages     []string      `json:"propertyImages"`
	Address            Address       `json:"address"`
	Location           Location      `json:"location"`
	NearbyPlaces       []NearbyPlace `json:"nearbyPlaces"`
	Amenities          []string      `json:"amenities"`
	Activities         []string      `json:"activities"`
	HouseRules         []string      `json:"houseRules"`
	CheckInTime        string        `json:"checkInTime"`
	CheckOutTime       string        `json:"checkOutTime"`
	CancellationPolicy string        `json:"cancellationPolicy"`
	Documents          []Document    `json:"documents"`
}

// RoomType is a bookable unit. BackendID is empty until the backend has
// persisted it.
type RoomType struct {
	ID              string        `json:"id"`
	BackendID       string        `json:"backendId,omitempty"`
	Name            string        `json:"name"`
	InventoryType   InventoryType `json:"inventoryType"`
	RoomCategory    RoomCategory  `json:"roomCategory"`
	MaxAdults       string        `json:"maxAdults"`
	MaxChildren     string        `json:"maxChildren"`
	BedsPerRoom     string        `json:"bedsPerRoom,omitempty"`
	TotalInventory  string        `json:"totalInventory"`
	PricePerNight   string        `json:"pricePerNight"`
	ExtraAdultPrice string        `json:"extraAdultPrice"`
	ExtraChildPrice string        `json:"extraChildPrice"`
	Images          []string      `json:"images"`
	Amenities       []string      `json:"amenities"`
}

// Clone returns a copy that shares no slices with r
func (r RoomType) Clone() RoomType {
	r.Images = append([]string{}, r.Images...)
	r.Amenities = append([]string{}, r.Amenities...)
	return r
}

// Entity names a sub-entity list editable through the inline editor
type Entity string

const (
	EntityNearby   Entity = "nearby"
	EntityRoomType Entity = "room-types"
)

// NewIndex is the editor index of an entity that is not in the list yet
const NewIndex = -1

// EditorState is the single inline editor of a session. A zero value means
// the list view is shown.
type EditorState struct {
	Entity Entity `json:"entity,omitempty"`
	Index  int    `json:"index"`
}

func (e EditorState) Active() bool {
	return e.Entity != ""
}

// PlaceResult is one hit of a place search
type PlaceResult struct {
	Name    string  `json:"name"`
	Type    string  `json:"type,omitempty"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Session is the ephemeral navigation state of one wizard
type Session struct {
	Step                int           `json:"step"`
	Editor              EditorState   `json:"editor"`
	ScratchNearby       NearbyPlace   `json:"scratchNearby"`
	ScratchRoomType     RoomType      `json:"scratchRoomType"`
	OriginalRoomTypeIDs []string      `json:"originalRoomTypeIds"`
	SearchResults       []PlaceResult `json:"searchResults"`
	Error               string        `json:"error,omitempty"`
}

func newDraft(schema Schema) PropertyDraft {
	docs := make([]Document, 0, len(schema.Documents))
	for _, spec := range schema.Documents {
		docs = append(docs, Document{Type: spec.Type, Name: spec.Name})
	}
	return PropertyDraft{
		PropertyImages: []string{},
		Location:       Location{Type: "Point", Coordinates: []string{"", ""}},
		NearbyPlaces:   []NearbyPlace{},
		Amenities:      []string{},
		Activities:     []string{},
		HouseRules:     []string{},
		Documents:      docs,
	}
}

func newRoomType(schema Schema) RoomType {
	rt := schema.DefaultRoomType()
	rt.ID = uuid.New().String()
	rt.Images = []string{}
	if rt.Amenities == nil {
		rt.Amenities = []string{}
	}
	return rt
}

// copy-based slice helpers keep previously published drafts intact

func appended[T any](s []T, items ...T) []T {
	out := make([]T, 0, len(s)+len(items))
	out = append(out, s...)
	return append(out, items...)
}

func without[T any](s []T, i int) []T {
	out := make([]T, 0, len(s))
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

func replaced[T any](s []T, i int, v T) []T {
	out := append(make([]T, 0, len(s)), s...)
	out[i] = v
	return out
}
