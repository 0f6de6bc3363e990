package dto

// Address is the delivery address assembled from note attributes and billing data.
type Address struct {
	FullName      *string `json:"full_name"`
	StreetAddress *string `json:"street_address"`
	Sector        *string `json:"sector"`
	NearestPlace  *string `json:"nearest_place"`
	City          *string `json:"city"`
	Province      *string `json:"province"`
	Country       *string `json:"country"`
	CountryCode   *string `json:"country_code"`
}

// CustomerDetails identifies the ordering customer.
type CustomerDetails struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// OrderResponse represents an order as exposed via transport layers.
// Absent upstream values are rendered as null.
type OrderResponse struct {
	OrderNumber     *int64          `json:"order_number"`
	Price           *string         `json:"price"`
	Address         Address         `json:"address"`
	PhoneNumber     *string         `json:"phone_number"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	Tags            *string         `json:"tags"`
}
