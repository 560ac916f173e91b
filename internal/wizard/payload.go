package wizard

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"homezoo/partner-portal/onboarding-service/pkg/geospatial"
)

func buildPayload(kind PropertyKind, d PropertyDraft) (PropertyPayload, error) {
	if len(d.Location.Coordinates) != 2 {
		return PropertyPayload{}, invalid(StepLocation, "location.coordinates", "Pick the property location on the map.")
	}
	point, err := geospatial.ParsePoint(d.Location.Coordinates[0], d.Location.Coordinates[1])
	if err != nil {
		return PropertyPayload{}, invalid(StepLocation, "location.coordinates", "Property coordinates are not valid numbers.")
	}

	nearby := make([]NearbyPlacePayload, 0, len(d.NearbyPlaces))
	for i, p := range d.NearbyPlaces {
		km, err := parseFloat(p.DistanceKm)
		if err != nil {
			return PropertyPayload{}, invalid(StepNearby, "nearbyPlaces."+strconv.Itoa(i)+".distanceKm", "Distance must be a number.")
		}
		nearby = append(nearby, NearbyPlacePayload{Name: p.Name, Type: p.Type, DistanceKm: km})
	}

	return PropertyPayload{
		PropertyType:       kind,
		PropertyName:       strings.TrimSpace(d.PropertyName),
		Description:        d.Description,
		ShortDescription:   d.ShortDescription,
		ContactNumber:      d.ContactNumber,
		Category:           d.Category,
		CoverImage:         d.CoverImage,
		PropertyImages:     d.PropertyImages,
		Address:            d.Address,
		Location:           GeoPoint{Type: "Point", Coordinates: [2]float64{point.Lon(), point.Lat()}},
		NearbyPlaces:       nearby,
		Amenities:          d.Amenities,
		Activities:         d.Activities,
		HouseRules:         d.HouseRules,
		CheckInTime:        d.CheckInTime,
		CheckOutTime:       d.CheckOutTime,
		CancellationPolicy: d.CancellationPolicy,
		Documents:          d.Documents,
	}, nil
}

func buildRoomTypePayload(i int, rt RoomType) (RoomTypePayload, error) {
	out := RoomTypePayload{
		Name:          strings.TrimSpace(rt.Name),
		InventoryType: rt.InventoryType,
		RoomCategory:  rt.RoomCategory,
		Images:        rt.Images,
		Amenities:     rt.Amenities,
	}
	var err error
	if out.MaxAdults, err = parseInt(rt.MaxAdults); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "maxAdults")
	}
	if out.MaxChildren, err = parseInt(rt.MaxChildren); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "maxChildren")
	}
	if out.TotalInventory, err = parseInt(rt.TotalInventory); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "totalInventory")
	}
	if strings.TrimSpace(rt.BedsPerRoom) != "" {
		n, err := parseInt(rt.BedsPerRoom)
		if err != nil {
			return RoomTypePayload{}, roomFieldError(i, "bedsPerRoom")
		}
		out.BedsPerRoom = &n
	}

	if out.PricePerNight, err = parseFloat(rt.PricePerNight); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "pricePerNight")
	}
	if out.ExtraAdultPrice, err = parseFloat(rt.ExtraAdultPrice); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "extraAdultPrice")
	}
	if out.ExtraChildPrice, err = parseFloat(rt.ExtraChildPrice); err != nil {
		return RoomTypePayload{}, roomFieldError(i, "extraChildPrice")
	}
	return out, nil
}

func roomFieldError(i int, field string) *ValidationError {
	return invalid(StepRoomTypes, "roomTypes."+strconv.Itoa(i)+"."+field, field+" must be a number.")
}

// blank numeric fields submit as zero
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// draftFromRecord hydrates an editable draft from a backend property
func draftFromRecord(schema Schema, rec PropertyRecord, docs []Document) PropertyDraft {
	d := newDraft(schema)
	p := rec.PropertyPayload

	d.PropertyName = p.PropertyName
	d.Description = p.Description
	d.ShortDescription = p.ShortDescription
	d.ContactNumber = p.ContactNumber
	d.Category = p.Category
	d.CoverImage = p.CoverImage
	d.PropertyImages = appended(d.PropertyImages, p.PropertyImages...)
	d.Address = p.Address
	if p.Location.Coordinates != [2]float64{} {
		d.Location.Coordinates = geospatial.FormatPoint(orb.Point(p.Location.Coordinates))
	}
	for _, n := range p.NearbyPlaces {
		d.NearbyPlaces = append(d.NearbyPlaces, NearbyPlace{
			Name:       n.Name,
			Type:       NormalizePlaceType(string(n.Type)),
			DistanceKm: formatFloat(n.DistanceKm),
		})
	}
	d.Amenities = appended(d.Amenities, p.Amenities...)
	d.Activities = appended(d.Activities, p.Activities...)
	d.HouseRules = appended(d.HouseRules, p.HouseRules...)
	d.CheckInTime = p.CheckInTime
	d.CheckOutTime = p.CheckOutTime
	d.CancellationPolicy = p.CancellationPolicy

	if len(docs) == 0 {
		docs = p.Documents
	}
	for _, doc := range docs {
		matched := false
		for i := range d.Documents {
			if d.Documents[i].Type == doc.Type {
				d.Documents[i].FileURL = doc.FileURL
				matched = true
				break
			}
		}
		if !matched {
			d.Documents = append(d.Documents, doc)
		}
	}
	return d
}

func roomTypeFromRecord(rec RoomTypeRecord, clientID string) RoomType {
	p := rec.RoomTypePayload
	rt := RoomType{
		ID:              clientID,
		BackendID:       rec.ID,
		Name:            p.Name,
		InventoryType:   p.InventoryType,
		RoomCategory:    p.RoomCategory,
		MaxAdults:       strconv.Itoa(p.MaxAdults),
		MaxChildren:     strconv.Itoa(p.MaxChildren),
		TotalInventory:  strconv.Itoa(p.TotalInventory),
		PricePerNight:   formatFloat(p.PricePerNight),
		ExtraAdultPrice: formatFloat(p.ExtraAdultPrice),
		ExtraChildPrice: formatFloat(p.ExtraChildPrice),
		Images:          appended([]string{}, p.Images...),
		Amenities:       appended([]string{}, p.Amenities...),
	}
	if p.BedsPerRoom != nil {
		rt.BedsPerRoom = strconv.Itoa(*p.BedsPerRoom)
	}
	return rt
}
