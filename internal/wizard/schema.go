package wizard

import "fmt"

// StepID names an input step of the wizard
type StepID string

const (
	StepBasics    StepID = "basics"
	StepLocation  StepID = "location"
	StepNearby    StepID = "nearby"
	StepAmenities StepID = "amenities"
	StepImages    StepID = "images"
	StepRoomTypes StepID = "roomTypes"
	StepRules     StepID = "rules"
	StepDocuments StepID = "documents"
	StepReview    StepID = "review"
	StepDone      StepID = "done"
)

var defaultSteps = []StepID{
	StepBasics, StepLocation, StepNearby, StepAmenities, StepImages,
	StepRoomTypes, StepRules, StepDocuments, StepReview,
}

const (
	MaxNearbyPlaces  = 5
	MinGalleryImages = 4
)

// DocumentSpec is a document slot the partner is asked to provide
type DocumentSpec struct {
	Type string
	Name string
}

// Schema holds everything that differs between property kinds
type Schema struct {
	Kind PropertyKind
	// Steps lists the input steps in order; the success step follows the last one.
	Steps []StepID
	// CategoryOptions is empty when the kind has no required category selector.
	CategoryOptions            []string
	RequiresCancellationPolicy bool
	// RoomImageCount is both the minimum and the maximum images per room type.
	RoomImageCount   int
	MinGalleryImages int
	Documents        []DocumentSpec
	DefaultRoomType  func() RoomType
}

// SchemaFor returns the schema of a property kind
func SchemaFor(kind PropertyKind) (Schema, error) {
	switch kind {
	case KindHostel:
		return Schema{
			Kind:             KindHostel,
			Steps:            defaultSteps,
			RoomImageCount:   3,
			MinGalleryImages: MinGalleryImages,
			Documents: []DocumentSpec{
				{Type: "ownership_proof", Name: "Property Ownership / Lease Proof"},
				{Type: "trade_license", Name: "Trade License"},
				{Type: "police_verification", Name: "Police Verification"},
				{Type: "fire_noc", Name: "Fire Safety NOC"},
			},
			DefaultRoomType: func() RoomType {
				return RoomType{
					InventoryType: InventoryBed,
					RoomCategory:  CategoryShared,
					MaxAdults:     "1",
					MaxChildren:   "0",
					BedsPerRoom:   "4",
				}
			},
		}, nil
	case KindResort:
		return Schema{
			Kind:                       KindResort,
			Steps:                      defaultSteps,
			CategoryOptions:            []string{"beach", "hill", "jungle", "desert", "lake", "heritage"},
			RequiresCancellationPolicy: true,
			RoomImageCount:             3,
			MinGalleryImages:           MinGalleryImages,
			Documents: []DocumentSpec{
				{Type: "ownership_proof", Name: "Property Ownership / Lease Proof"},
				{Type: "gst_certificate", Name: "GST Certificate"},
				{Type: "trade_license", Name: "Trade License"},
				{Type: "fire_noc", Name: "Fire Safety NOC"},
				{Type: "pollution_noc", Name: "Pollution Control NOC"},
			},
			DefaultRoomType: func() RoomType {
				return RoomType{
					InventoryType: InventoryRoom,
					RoomCategory:  CategoryPrivate,
					MaxAdults:     "2",
					MaxChildren:   "1",
				}
			},
		}, nil
	case KindVilla:
		return Schema{
			Kind:                       KindVilla,
			Steps:                      defaultSteps,
			RequiresCancellationPolicy: true,
			RoomImageCount:             4,
			MinGalleryImages:           MinGalleryImages,
			Documents: []DocumentSpec{
				{Type: "ownership_proof", Name: "Property Ownership / Lease Proof"},
				{Type: "society_noc", Name: "Society / Association NOC"},
				{Type: "id_proof", Name: "Owner ID Proof"},
			},
			DefaultRoomType: func() RoomType {
				return RoomType{
					InventoryType:  InventoryEntire,
					RoomCategory:   CategoryEntire,
					MaxAdults:      "6",
					MaxChildren:    "2",
					TotalInventory: "1",
				}
			},
		}, nil
	}
	return Schema{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// StepCount returns N, the number of input steps
func (s Schema) StepCount() int {
	return len(s.Steps)
}

// StepAt returns the id of a 1-based step, or StepDone past the last input step
func (s Schema) StepAt(step int) StepID {
	if step >= 1 && step <= len(s.Steps) {
		return s.Steps[step-1]
	}
	return StepDone
}

func (s Schema) hasCategory(c string) bool {
	for _, opt := range s.CategoryOptions {
		if opt == c {
			return true
		}
	}
	return false
}
