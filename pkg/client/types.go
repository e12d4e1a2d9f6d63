package client

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type StartJobRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	SearchTerms []string `json:"searchTerms,omitempty"`
}

type StartJobResponse struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	JobID                string `json:"jobId"`
	SessionID            string `json:"sessionId"`
	RequiresSecurityCode bool   `json:"requiresSecurityCode"`
}

type Document struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

type Tender struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Organization    string     `json:"organization"`
	PublicationDate string     `json:"publicationDate"`
	ClosingDate     string     `json:"closingDate"`
	Documents       []Document `json:"documents"`
}

type JobStatus struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Progress  int      `json:"progress"`
	StartTime string   `json:"startTime"`
	Results   []Tender `json:"results"`
	Error     string   `json:"error,omitempty"`
}

// Terminal reports whether the job will not change anymore.
func (s JobStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type JobSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	StartTime string `json:"startTime"`
}

type JobList struct {
	Status string       `json:"status"`
	Count  int          `json:"count"`
	Jobs   []JobSummary `json:"jobs"`
}

type VerifyCodeRequest struct {
	Code      string `json:"code"`
	SessionID string `json:"sessionId"`
	JobID     string `json:"jobId,omitempty"`
}

type VerifyCodeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
}
