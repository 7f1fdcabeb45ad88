// Package api contains the HTTP API contract of the dataset endpoints.
package api

// FilterQuery holds the equality filters shared by every dataset endpoint.
// Period is not range-checked: an out-of-range month selects nothing.
type FilterQuery struct {
	Year     *int    `query:"year" validate:"omitempty,min=1900,max=9999"`
	Period   *int    `query:"period"`
	Semester string  `query:"semester"`
	Entity   *string `query:"entity"`
	Product  *string `query:"product"`
}

// GroupsQuery selects a grouped sum.
type GroupsQuery struct {
	FilterQuery
	By       string   `query:"by" validate:"required"`
	Measures []string `query:"measures"`
	// Sort is "key", a measure name, or empty for first-occurrence order.
	Sort string `query:"sort"`
}

// TopQuery selects the top row of a measure.
type TopQuery struct {
	FilterQuery
	Measure string `query:"measure" validate:"required"`
}

// SharesQuery selects percentage shares of a measure per group.
type SharesQuery struct {
	FilterQuery
	By      string `query:"by" validate:"required"`
	Measure string `query:"measure" validate:"required"`
}

// RecordsQuery pages through filtered rows.
type RecordsQuery struct {
	FilterQuery
	Limit  int `query:"limit" validate:"min=0,max=10000"`
	Offset int `query:"offset" validate:"min=0"`
}

// Response is the success envelope of every JSON endpoint.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// NewResponse wraps data in a success envelope.
func NewResponse(data interface{}) Response {
	return Response{Status: "success", Data: data}
}
