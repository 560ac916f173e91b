package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"homezoo/partner-portal/onboarding-service/internal/wizard"
)

// PropertyClient implements wizard.PropertyService over the REST backend
type PropertyClient struct {
	client *Client
}

func NewPropertyClient(client *Client) *PropertyClient {
	return &PropertyClient{client: client}
}

var _ wizard.PropertyService = (*PropertyClient)(nil)

func propertyPath(id string, rest ...string) string {
	p := "/properties/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

func (p *PropertyClient) GetDetails(ctx context.Context, id string) (*wizard.PropertyDetails, error) {
	var out wizard.PropertyDetails
	if err := p.client.do(ctx, http.MethodGet, propertyPath(id, "details"), nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create sends the property with its room types embedded. The idempotency
// key lets the backend answer a retried create with the original result.
func (p *PropertyClient) Create(ctx context.Context, req wizard.CreatePropertyRequest) (*wizard.CreatePropertyResult, error) {
	header := http.Header{}
	if req.IdempotencyKey != "" {
		header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	var out wizard.CreatePropertyResult
	if err := p.client.do(ctx, http.MethodPost, "/properties", nil, header, req.Payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *PropertyClient) Update(ctx context.Context, id string, payload wizard.PropertyPayload) (*wizard.PropertyRecord, error) {
	var out struct {
		Property wizard.PropertyRecord `json:"property"`
	}
	if err := p.client.do(ctx, http.MethodPut, propertyPath(id), nil, nil, payload, &out); err != nil {
		return nil, err
	}
	return &out.Property, nil
}

func (p *PropertyClient) AddRoomType(ctx context.Context, propertyID string, payload wizard.RoomTypePayload) (*wizard.RoomTypeRecord, error) {
	var out struct {
		RoomType wizard.RoomTypeRecord `json:"roomType"`
	}
	if err := p.client.do(ctx, http.MethodPost, propertyPath(propertyID, "room-types"), nil, nil, payload, &out); err != nil {
		return nil, err
	}
	if out.RoomType.ID == "" {
		return nil, fmt.Errorf("add room type: response carried no id")
	}
	return &out.RoomType, nil
}

func (p *PropertyClient) UpdateRoomType(ctx context.Context, propertyID, roomTypeID string, payload wizard.RoomTypePayload) error {
	return p.client.do(ctx, http.MethodPut, propertyPath(propertyID, "room-types", roomTypeID), nil, nil, payload, nil)
}

// DeleteRoomType treats an already missing room type as deleted
func (p *PropertyClient) DeleteRoomType(ctx context.Context, propertyID, roomTypeID string) error {
	err := p.client.do(ctx, http.MethodDelete, propertyPath(propertyID, "room-types", roomTypeID), nil, nil, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}
