package api

// createCarRequest is the body of POST /api/cars. Fields are untyped so a
// non-text name is reported as an invalid name rather than a decode error.
type createCarRequest struct {
	Name  any `json:"name"`
	Color any `json:"color"`
}

// recordTimeRequest is the body of POST /api/times/{carId}. Time is a number
// of milliseconds or a string such as "1:05.250".
type recordTimeRequest struct {
	Time any `json:"time"`
}

// okResponse is returned by the delete endpoints.
type okResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Cars      int    `json:"cars"`
	Observers int    `json:"observers"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
