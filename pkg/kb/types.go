package kb

// PortionTypeProvision marks substantive legislative text, as opposed to
// headings and other structural portions.
const PortionTypeProvision = "provision"

// Hit is one retrieved portion of a legislative work.
type Hit struct {
	Metadata Metadata `json:"metadata"`
	Content  Content  `json:"content"`
}

type Metadata struct {
	WorkFRBRURI    string `json:"work_frbr_uri"`
	PortionType    string `json:"portion_type"`
	PortionID      string `json:"portion_id"`
	PortionTitle   string `json:"portion_title,omitempty"`
	Title          string `json:"title"`
	ExpressionDate string `json:"expression_date"`
	PublicURL      string `json:"public_url"`
}

type Content struct {
	Text string `json:"text"`
}

// RetrieveRequest is the body of a knowledge-base retrieve call.
// TopK is a string on the wire.
type RetrieveRequest struct {
	Text    string  `json:"text"`
	TopK    string  `json:"top_k"`
	Filters Filters `json:"filters"`
}

type Filters struct {
	Principal bool   `json:"principal"`
	Repealed  bool   `json:"repealed"`
	FRBRPlace string `json:"frbr_place"`
}

type RetrieveResponse struct {
	Results []Hit `json:"results"`
}
