package models

// ActionGetProductInfo asks for the product context of a page.
const ActionGetProductInfo = "getProductInfo"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query   string         `json:"query"`
	Context ProductContext `json:"context"`
}

// QueryResponse is the body returned by POST /query. Exactly one field is set.
type QueryResponse struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Message is a request from another part of the extension (POST /message).
type Message struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
	HTML   string `json:"html,omitempty"`
}

// MessageResponse answers ActionGetProductInfo.
type MessageResponse struct {
	ProductInfo ProductContext `json:"productInfo"`
}

// LatLng is a coordinate pair on the wire.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VendorPin is one vendor in a GET /vendors/{category} response.
type VendorPin struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
	Type   string  `json:"type"`
}

// VendorsResponse is the body of GET /vendors/{category}.
type VendorsResponse struct {
	Category string      `json:"category"`
	Center   LatLng      `json:"center"`
	Vendors  []VendorPin `json:"vendors"`
}

// TestVendorsResponse is the body of GET /test-vendors/{category}.
type TestVendorsResponse struct {
	Category string `json:"category"`
	Resolved string `json:"resolved"`
	Count    int    `json:"count"`
}
