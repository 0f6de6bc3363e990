package order

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderproxy/internal/entity"
)

const sampleOrder = `{
	"order_number": 1001,
	"current_total_price": "25.00",
	"tags": "vip",
	"note_attributes": [
		{"name": "Full Name", "value": "Ali Khan"},
		{"name": "Phone number", "value": "0300-1234567"}
	],
	"billing_address": {"country": "Pakistan", "country_code": "PK"},
	"customer": {"email": "ali@example.com", "default_address": {"first_name": "Ali", "last_name": "Khan"}}
}`

func decodeRaw(t *testing.T, raw string) entity.RawOrder {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var order entity.RawOrder
	require.NoError(t, dec.Decode(&order))
	return order
}

func TestProject(t *testing.T) {
	got := Project(decodeRaw(t, sampleOrder))

	require.NotNil(t, got.OrderNumber)
	assert.Equal(t, int64(1001), *got.OrderNumber)
	assert.Equal(t, "25.00", *got.Price)
	assert.Equal(t, "vip", *got.Tags)
	assert.Equal(t, "0300-1234567", *got.PhoneNumber)

	assert.Equal(t, "Ali Khan", *got.Address.FullName)
	assert.Equal(t, "Pakistan", *got.Address.Country)
	assert.Equal(t, "PK", *got.Address.CountryCode)
	assert.Nil(t, got.Address.StreetAddress)
	assert.Nil(t, got.Address.Sector)
	assert.Nil(t, got.Address.NearestPlace)
	assert.Nil(t, got.Address.City)
	assert.Nil(t, got.Address.Province)

	assert.Equal(t, "Ali", *got.CustomerDetails.FirstName)
	assert.Equal(t, "Khan", *got.CustomerDetails.LastName)
	assert.Equal(t, "ali@example.com", *got.CustomerDetails.Email)
}

func TestProject_JSONShape(t *testing.T) {
	encoded, err := json.Marshal(Project(decodeRaw(t, sampleOrder)))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"order_number": 1001,
		"price": "25.00",
		"address": {
			"full_name": "Ali Khan",
			"street_address": null,
			"sector": null,
			"nearest_place": null,
			"city": null,
			"province": null,
			"country": "Pakistan",
			"country_code": "PK"
		},
		"phone_number": "0300-1234567",
		"customer_details": {"first_name": "Ali", "last_name": "Khan", "email": "ali@example.com"},
		"tags": "vip"
	}`, string(encoded))
}

func TestProject_AllAddressAttributes(t *testing.T) {
	got := Project(decodeRaw(t, `{"note_attributes": [
		{"name": "Area / Mohalla / Basti", "value": "Gulberg"},
		{"name": "Sector / BLock", "value": "B"},
		{"name": "Nearest Place", "value": "Liberty Market"},
		{"name": "CITY / DISTRICT", "value": "Lahore"},
		{"name": "Tahseel(تہسیل) / Postal Code(Optional)", "value": "54000"}
	]}`))

	assert.Equal(t, "Gulberg", *got.Address.StreetAddress)
	assert.Equal(t, "B", *got.Address.Sector)
	assert.Equal(t, "Liberty Market", *got.Address.NearestPlace)
	assert.Equal(t, "Lahore", *got.Address.City)
	assert.Equal(t, "54000", *got.Address.Province)
	assert.Nil(t, got.Address.FullName)
	assert.Nil(t, got.PhoneNumber)
}

func TestProject_MissingNoteAttributes(t *testing.T) {
	got := Project(decodeRaw(t, `{"order_number": 7, "customer": null, "billing_address": "n/a"}`))

	assert.Equal(t, int64(7), *got.OrderNumber)
	assert.Nil(t, got.PhoneNumber)
	assert.Nil(t, got.Address.FullName)
	assert.Nil(t, got.Address.StreetAddress)
	assert.Nil(t, got.Address.Sector)
	assert.Nil(t, got.Address.NearestPlace)
	assert.Nil(t, got.Address.City)
	assert.Nil(t, got.Address.Province)
	assert.Nil(t, got.Address.Country)
	assert.Nil(t, got.CustomerDetails.Email)
	assert.Nil(t, got.CustomerDetails.FirstName)
}

func TestProject_DuplicateAttributeLastWins(t *testing.T) {
	got := Project(decodeRaw(t, `{"note_attributes": [
		{"name": "Phone number", "value": "0300-0000000"},
		{"name": "Phone number", "value": "0321-9999999"}
	]}`))

	assert.Equal(t, "0321-9999999", *got.PhoneNumber)
}

func TestProjectAll_PreservesOrderAndCount(t *testing.T) {
	items := []any{
		map[string]any{"order_number": json.Number("3")},
		"not an order",
		map[string]any{"order_number": json.Number("1")},
		nil,
		map[string]any{"order_number": json.Number("2")},
	}

	got := ProjectAll(items)
	require.Len(t, got, len(items))
	assert.Equal(t, int64(3), *got[0].OrderNumber)
	assert.Nil(t, got[1].OrderNumber)
	assert.Equal(t, int64(1), *got[2].OrderNumber)
	assert.Nil(t, got[3].OrderNumber)
	assert.Equal(t, int64(2), *got[4].OrderNumber)

	assert.NotNil(t, ProjectAll(nil))
	assert.Empty(t, ProjectAll(nil))
}
