package api

// Status values of the response envelope.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Envelope is the common response wrapper.
type Envelope struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
	TotalPages *int   `json:"totalPages,omitempty"`
	HasPrev    *bool  `json:"hasPrev,omitempty"`
	HasNext    *bool  `json:"hasNext,omitempty"`
}

// Record is a provisioning record.
type Record struct {
	ProvisionID    int64  `json:"provisionId"`
	RequestID      string `json:"requestId"`
	ExternalID     string `json:"externalId"`
	WWID           string `json:"wwid"`
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	Controller     string `json:"controller"`
	SUT            string `json:"sut"`
	Location       string `json:"location"`
	Kit            string `json:"kit"`
	IFWIBinary     string `json:"ifwiBinary"`
	BIOSFile       string `json:"biosFile"`
	WIMName        string `json:"wimName"`
	WiFiName       string `json:"wifiName"`
	WiFiPassword   string `json:"wifiPassword"`
	SharePath      string `json:"sharePath"`
	ShareUser      string `json:"shareUser"`
	SharePassword  string `json:"sharePassword"`
	IFWIStatus     string `json:"ifwiStatus"`
	IFWIResultLink string `json:"ifwiResultLink"`
	BIOSStatus     string `json:"biosStatus"`
	BIOSResultLink string `json:"biosResultLink"`
	OSStatus       string `json:"osStatus"`
	OSResultLink   string `json:"osResultLink"`
	E2EStatus      string `json:"e2eStatus"`
	E2EResultLink  string `json:"e2eResultLink"`
	CreatedAt      string `json:"createdAt"`
}

// RecordWithUser is a record joined to its user row.
type RecordWithUser struct {
	Record
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserGroup string `json:"userGroup"`
}

// ActiveWork is the per-controller active view.
type ActiveWork struct {
	ProvisionID int64  `json:"provisionId"`
	Controller  string `json:"controller"`
	SUT         string `json:"sut"`
	IFWIStatus  string `json:"ifwiStatus"`
	BIOSStatus  string `json:"biosStatus"`
	OSStatus    string `json:"osStatus"`
	E2EStatus   string `json:"e2eStatus"`
}

// Batch is a master sequence row.
type Batch struct {
	GlobalID  int64  `json:"globalId"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

// Controller is a controller host.
type Controller struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	CreatedAt string `json:"createdAt"`
}

// Platform is a hardware platform family.
type Platform struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// TransitionRequest is the PATCH /oap/provision body.
type TransitionRequest struct {
	ProvisionID int64  `json:"provisionId"`
	Stage       string `json:"stage"`
	Status      string `json:"status"`
	ResultLink  string `json:"resultLink"`
}

// TransitionResponse reports whether the transition applied.
type TransitionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	Stage     string `json:"stage"`
	NewStatus string `json:"newStatus,omitempty"`
}

// Transition outcome messages.
const (
	MessageTransitionApplied = "Successfully Added Updated."
	MessageTransitionNoop    = "No record To Updated."
)

// FilterRequest is one narrow-query filter.
type FilterRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SortRequest is one requested sort key.
type SortRequest struct {
	Name  string `json:"name"`
	Order string `json:"order"`
}

// QueryRequest is the POST /oap/provision_result body.
type QueryRequest struct {
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
	Filters []FilterRequest `json:"filters"`
	Sorts   []SortRequest   `json:"sorts"`
}

// SearchRequest is the POST /oap/provision_result_new body.
type SearchRequest struct {
	Page    int           `json:"page"`
	PerPage int           `json:"perPage"`
	Search  string        `json:"search"`
	Sorts   []SortRequest `json:"sorts"`
}

// IssueRequest is the POST /oap/provision_master body.
type IssueRequest struct {
	UserID string `json:"userId"`
}

// IssueResponse carries the new global id.
type IssueResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	GlobalID int64  `json:"globalId"`
}

// ControllerRequest is the POST /oap/controller body.
type ControllerRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// PlatformRequest is the POST /oap/platform body.
type PlatformRequest struct {
	Name string `json:"name"`
}
