package wizard

import "context"

// GeoPoint is the numeric location sent to the backend
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type NearbyPlacePayload struct {
	Name       string    `json:"name"`
	Type       PlaceType `json:"type"`
	DistanceKm float64   `json:"distanceKm"`
}

type RoomTypePayload struct {
	Name            string        `json:"name"`
	InventoryType   InventoryType `json:"inventoryType"`
	RoomCategory    RoomCategory  `json:"roomCategory"`
	MaxAdults       int           `json:"maxAdults"`
	MaxChildren     int           `json:"maxChildren"`
	BedsPerRoom     *int          `json:"bedsPerRoom,omitempty"`
	TotalInventory  int           `json:"totalInventory"`
	PricePerNight   float64       `json:"pricePerNight"`
	ExtraAdultPrice float64       `json:"extraAdultPrice"`
	ExtraChildPrice float64       `json:"extraChildPrice"`
	Images          []string      `json:"images"`
	Amenities       []string      `json:"amenities"`
}

// PropertyPayload is the outbound representation of a draft
type PropertyPayload struct {
	PropertyType       PropertyKind         `json:"propertyType"`
	PropertyName       string               `json:"propertyName"`
	Description        string               `json:"description"`
	ShortDescription   string               `json:"shortDescription"`
	ContactNumber      string               `json:"contactNumber,omitempty"`
	Category           string               `json:"category,omitempty"`
	CoverImage         string               `json:"coverImage"`
	PropertyImages     []string             `json:"propertyImages"`
	Address            Address              `json:"address"`
	Location           GeoPoint             `json:"location"`
	NearbyPlaces       []NearbyPlacePayload `json:"nearbyPlaces"`
	Amenities          []string             `json:"amenities"`
	Activities         []string             `json:"activities"`
	HouseRules         []string             `json:"houseRules"`
	CheckInTime        string               `json:"checkInTime"`
	CheckOutTime       string               `json:"checkOutTime"`
	CancellationPolicy string               `json:"cancellationPolicy,omitempty"`
	Documents          []Document           `json:"documents"`
	RoomTypes          []RoomTypePayload    `json:"roomTypes,omitempty"`
}

// PropertyRecord is a property as the backend returns it
type PropertyRecord struct {
	ID string `json:"_id"`
	PropertyPayload
}

// RoomTypeRecord is a persisted room type
type RoomTypeRecord struct {
	ID string `json:"_id"`
	RoomTypePayload
}

// PropertyDetails is the edit-flow hydration source
type PropertyDetails struct {
	Property  PropertyRecord   `json:"property"`
	Documents []Document       `json:"documents"`
	RoomTypes []RoomTypeRecord `json:"roomTypes"`
}

// CreatePropertyRequest is the atomic first save. IdempotencyKey stays the
// same across retries of the same draft.
type CreatePropertyRequest struct {
	Payload        PropertyPayload
	IdempotencyKey string
}

// CreatePropertyResult carries the created property and its room types in
// the order they were sent.
type CreatePropertyResult struct {
	Property  PropertyRecord   `json:"property"`
	RoomTypes []RoomTypeRecord `json:"roomTypes"`
}

type PropertyService interface {
	GetDetails(ctx context.Context, id string) (*PropertyDetails, error)
	Create(ctx context.Context, req CreatePropertyRequest) (*CreatePropertyResult, error)
	Update(ctx context.Context, id string, payload PropertyPayload) (*PropertyRecord, error)
	AddRoomType(ctx context.Context, propertyID string, payload RoomTypePayload) (*RoomTypeRecord, error)
	UpdateRoomType(ctx context.Context, propertyID, roomTypeID string, payload RoomTypePayload) error
	DeleteRoomType(ctx context.Context, propertyID, roomTypeID string) error
}

type LocationService interface {
	SearchLocation(ctx context.Context, query string) ([]PlaceResult, error)
	GetAddressFromCoordinates(ctx context.Context, lat, lng float64) (*Address, error)
	CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error)
}

// File is one file chosen in the browser file picker
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// Base64Image is an image captured by the native shell
type Base64Image struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}

type UploadedFile struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type UploadService interface {
	UploadImages(ctx context.Context, files []File) ([]string, error)
	UploadImagesBase64(ctx context.Context, images []Base64Image) ([]UploadedFile, error)
	DeleteImage(ctx context.Context, url string) error
}

// CameraCapture is the result of one native camera invocation
type CameraCapture struct {
	Success  bool   `json:"success"`
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}

type CameraBridge interface {
	OpenNativeCamera(ctx context.Context) (*CameraCapture, error)
}

// CameraFunc adapts a function to CameraBridge
type CameraFunc func(ctx context.Context) (*CameraCapture, error)

func (f CameraFunc) OpenNativeCamera(ctx context.Context) (*CameraCapture, error) {
	return f(ctx)
}
