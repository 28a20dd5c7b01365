package locations

// Division is the top level of the administrative hierarchy.
type Division struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// District belongs to exactly one division.
type District struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	DivisionID int64  `json:"division_id"`
}

// Thana belongs to exactly one district.
type Thana struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	DistrictID int64  `json:"district_id"`
}

// Hierarchy is the resolved division > district > thana chain for a location.
// District and Thana are nil when the hierarchy was resolved from a higher
// level.
type Hierarchy struct {
	Division *Division `json:"division,omitempty"`
	District *District `json:"district,omitempty"`
	Thana    *Thana    `json:"thana,omitempty"`
}

// SearchResults groups name matches across all three levels.
type SearchResults struct {
	Query     string     `json:"query"`
	Divisions []Division `json:"divisions"`
	Districts []District `json:"districts"`
	Thanas    []Thana    `json:"thanas"`
}

// DivisionNode is one branch of the full location tree.
type DivisionNode struct {
	Division
	Districts []DistrictNode `json:"districts"`
}

// DistrictNode carries a district and its thanas.
type DistrictNode struct {
	District
	Thanas []Thana `json:"thanas"`
}

// Stats summarizes the directory for the admin dashboard.
type Stats struct {
	Divisions int64 `json:"divisions"`
	Districts int64 `json:"districts"`
	Thanas    int64 `json:"thanas"`
}
