package contract

import (
	"encoding/json"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// InfoSchema is the required shape of GetBritEdgeInfo.
var InfoSchema = Schema{
	{Path: "company.name", Kind: ldvalue.StringType},
	{Path: "stats.totalEmployees", Kind: ldvalue.NumberType},
	{Path: "locations", Kind: ldvalue.ArrayType, MinItems: 1},
}

// TestimonialsSchema is the required shape of GetTestimonials.
var TestimonialsSchema = Schema{
	{Path: "testimonials", Kind: ldvalue.ArrayType, MinItems: 1, Items: []Field{
		{Path: "client", Kind: ldvalue.StringType},
		{Path: "rating", Kind: ldvalue.NumberType},
	}},
}

// CustomersSchema is the required shape of GetCustomers. customerId may be
// numeric or a string.
var CustomersSchema = Schema{
	{Path: "customers", Kind: ldvalue.ArrayType, MinItems: 1, Items: []Field{
		{Path: "customerId", Kind: ldvalue.RawType},
		{Path: "companyName", Kind: ldvalue.StringType},
	}},
}

// Info is the decoded GetBritEdgeInfo payload.
type Info struct {
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
	Stats struct {
		TotalEmployees float64 `json:"totalEmployees"`
	} `json:"stats"`
	Locations []json.RawMessage `json:"locations"`
}

// Testimonial is one entry of GetTestimonials.
type Testimonial struct {
	Client string  `json:"client"`
	Rating float64 `json:"rating"`
}

// Testimonials is the decoded GetTestimonials payload.
type Testimonials struct {
	Testimonials []Testimonial `json:"testimonials"`
}

// Customer is one entry of GetCustomers.
type Customer struct {
	CustomerID  json.RawMessage `json:"customerId"`
	CompanyName string          `json:"companyName"`
}

// Customers is the decoded GetCustomers payload.
type Customers struct {
	Customers []Customer `json:"customers"`
}
