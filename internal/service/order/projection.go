package order

import (
	"github.com/Additional-Code/orderproxy/internal/dto"
	"github.com/Additional-Code/orderproxy/internal/entity"
)

// Note attribute names carrying address and contact fields.
const (
	AttrFullName      = "Full Name"
	AttrStreetAddress = "Area / Mohalla / Basti"
	AttrSector        = "Sector / BLock"
	AttrNearestPlace  = "Nearest Place"
	AttrCity          = "CITY / DISTRICT"
	AttrProvince      = "Tahseel(تہسیل) / Postal Code(Optional)"
	AttrPhoneNumber   = "Phone number"
)

// Project reduces a raw upstream order to its response shape.
func Project(order entity.RawOrder) dto.OrderResponse {
	notes := order.NoteAttributes()
	billing := order.Object("billing_address")
	customer := order.Object("customer")
	defaultAddress := customer.Object("default_address")

	return dto.OrderResponse{
		OrderNumber: order.Int("order_number"),
		Price:       order.String("current_total_price"),
		Address: dto.Address{
			FullName:      notes.Get(AttrFullName),
			StreetAddress: notes.Get(AttrStreetAddress),
			Sector:        notes.Get(AttrSector),
			NearestPlace:  notes.Get(AttrNearestPlace),
			City:          notes.Get(AttrCity),
			Province:      notes.Get(AttrProvince),
			Country:       billing.String("country"),
			CountryCode:   billing.String("country_code"),
		},
		PhoneNumber: notes.Get(AttrPhoneNumber),
		CustomerDetails: dto.CustomerDetails{
			FirstName: defaultAddress.String("first_name"),
			LastName:  defaultAddress.String("last_name"),
			Email:     customer.String("email"),
		},
		Tags: order.String("tags"),
	}
}

// ProjectAll projects every entry in upstream order. Entries that are not
// objects project to an empty response so positions are preserved.
func ProjectAll(items []any) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(items))
	for _, item := range items {
		raw, _ := item.(map[string]any)
		out = append(out, Project(entity.RawOrder(raw)))
	}
	return out
}
