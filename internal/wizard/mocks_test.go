package wizard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPropertyService is a mock implementation of PropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) GetDetails(ctx context.Context, id string) (*PropertyDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PropertyDetails), args.Error(1)
}

func (m *MockPropertyService) Create(ctx context.Context, req CreatePropertyRequest) (*CreatePropertyResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreatePropertyResult), args.Error(1)
}

func (m *MockPropertyService) Update(ctx context.Context, id string, payload PropertyPayload) (*PropertyRecord, error) {
	args := m.Called(ctx, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PropertyRecord), args.Error(1)
}

func (m *MockPropertyService) AddRoomType(ctx context.Context, propertyID string, payload RoomTypePayload) (*RoomTypeRecord, error) {
	args := m.Called(ctx, propertyID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RoomTypeRecord), args.Error(1)
}

func (m *MockPropertyService) UpdateRoomType(ctx context.Context, propertyID, roomTypeID string, payload RoomTypePayload) error {
	args := m.Called(ctx, propertyID, roomTypeID, payload)
	return args.Error(0)
}

func (m *MockPropertyService) DeleteRoomType(ctx context.Context, propertyID, roomTypeID string) error {
	args := m.Called(ctx, propertyID, roomTypeID)
	return args.Error(0)
}

// MockLocationService is a mock implementation of LocationService
type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) SearchLocation(ctx context.Context, query string) ([]PlaceResult, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PlaceResult), args.Error(1)
}

func (m *MockLocationService) GetAddressFromCoordinates(ctx context.Context, lat, lng float64) (*Address, error) {
	args := m.Called(ctx, lat, lng)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Address), args.Error(1)
}

func (m *MockLocationService) CalculateDistance(ctx context.Context, lat1, lng1, lat2, lng2 float64) (float64, error) {
	args := m.Called(ctx, lat1, lng1, lat2, lng2)
	return args.Get(0).(float64), args.Error(1)
}

// MockUploadService is a mock implementation of UploadService
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) UploadImages(ctx context.Context, files []File) ([]string, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockUploadService) UploadImagesBase64(ctx context.Context, images []Base64Image) ([]UploadedFile, error) {
	args := m.Called(ctx, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UploadedFile), args.Error(1)
}

func (m *MockUploadService) DeleteImage(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// staticSource returns fixed URLs without touching the upload service
type staticSource struct {
	urls  []string
	calls atomic.Int32
}

func (s *staticSource) Capture(ctx context.Context, uploads UploadService) ([]string, error) {
	s.calls.Add(1)
	return s.urls, nil
}

// blockingSource holds its capture open until release is closed
type blockingSource struct {
	urls    []string
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func newBlockingSource(urls ...string) *blockingSource {
	return &blockingSource{
		urls:    urls,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSource) Capture(ctx context.Context, uploads UploadService) ([]string, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.started) })
	<-s.release
	return s.urls, nil
}

type testDeps struct {
	props     *MockPropertyService
	locations *MockLocationService
	uploads   *MockUploadService
}

func newTestDeps() (testDeps, Dependencies) {
	td := testDeps{
		props:     new(MockPropertyService),
		locations: new(MockLocationService),
		uploads:   new(MockUploadService),
	}
	return td, Dependencies{
		Properties:       td.props,
		Locations:        td.locations,
		Uploads:          td.uploads,
		Logger:           zap.NewNop(),
		StorageURLPrefix: "https://cdn.homezoo.test/",
	}
}

func cdn(name string) string {
	return "https://cdn.homezoo.test/properties/test/images/" + name
}

// fillDraft satisfies every step precondition of a hostel or villa wizard
func fillDraft(t *testing.T, w *Wizard) {
	t.Helper()

	fields := []struct {
		path  string
		value any
	}{
		{"propertyName", "Backpackers Den"},
		{"shortDescription", "Rooftop hostel near the beach"},
		{"description", "Dorms and private rooms five minutes from Baga"},
		{"address.country", "India"},
		{"address.state", "Goa"},
		{"address.city", "Calangute"},
		{"address.area", "Baga"},
		{"address.fullAddress", "12 Beach Road"},
		{"address.pincode", "403516"},
		{"location.coordinates", []string{"73.7517", "15.5553"}},
		{"coverImage", cdn("cover.jpg")},
		{"propertyImages", []string{cdn("g1.jpg"), cdn("g2.jpg"), cdn("g3.jpg"), cdn("g4.jpg")}},
		{"checkInTime", "12:00"},
		{"checkOutTime", "10:00"},
		{"cancellationPolicy", "moderate"},
	}
	for _, f := range fields {
		require.NoError(t, w.Set(f.path, f.value), f.path)
	}
	require.NoError(t, w.Toggle("amenities", "wifi"))

	require.NoError(t, w.StartAdd(EntityNearby))
	require.NoError(t, w.SetScratch(EntityNearby, "name", "Baga Beach"))
	require.NoError(t, w.SetScratch(EntityNearby, "distanceKm", "0.5"))
	require.NoError(t, w.Save(EntityNearby))

	addRoomType(t, w, "Dorm Bed", "799")
}

func addRoomType(t *testing.T, w *Wizard, name, price string) {
	t.Helper()
	images := make([]string, 0, w.schema.RoomImageCount)
	for i := 0; i < w.schema.RoomImageCount; i++ {
		images = append(images, cdn(name+"-"+string(rune('a'+i))+".jpg"))
	}
	require.NoError(t, w.StartAdd(EntityRoomType))
	require.NoError(t, w.SetScratch(EntityRoomType, "name", name))
	require.NoError(t, w.SetScratch(EntityRoomType, "pricePerNight", price))
	require.NoError(t, w.SetScratch(EntityRoomType, "images", images))
	require.NoError(t, w.Save(EntityRoomType))
}

func roomPayload(name string) RoomTypePayload {
	return RoomTypePayload{
		Name:          name,
		InventoryType: InventoryBed,
		RoomCategory:  CategoryShared,
		MaxAdults:     1,
		PricePerNight: 650,
		Images:        []string{cdn("r1.jpg"), cdn("r2.jpg"), cdn("r3.jpg")},
		Amenities:     []string{"locker"},
	}
}

func existingProperty(id string) PropertyRecord {
	return PropertyRecord{
		ID: id,
		PropertyPayload: PropertyPayload{
			PropertyType:     KindHostel,
			PropertyName:     "Old Fort Hostel",
			ShortDescription: "Heritage hostel",
			CoverImage:       cdn("cover.jpg"),
			PropertyImages:   []string{cdn("1.jpg"), cdn("2.jpg"), cdn("3.jpg"), cdn("4.jpg")},
			Address: Address{
				Country: "India", State: "Rajasthan", City: "Jaipur",
				FullAddress: "3 Fort Lane", Pincode: "302002",
			},
			Location:     GeoPoint{Type: "Point", Coordinates: [2]float64{75.8267, 26.9239}},
			NearbyPlaces: []NearbyPlacePayload{{Name: "Hawa Mahal", Type: PlaceTourist, DistanceKm: 1.2}},
			Amenities:    []string{"wifi"},
			CheckInTime:  "13:00",
			CheckOutTime: "11:00",
		},
	}
}
