package domain

const (
	// ActionGetWeather is the only action the assistant dispatches.
	ActionGetWeather = "get_weather"
	// ParamLocation names the place a weather lookup is about.
	ParamLocation = "location"

	// NoReplyMessage is returned when the model produced no text at all.
	NoReplyMessage = "No usable reply was received."
)

// ActionRequest is a structured instruction decoded from a model reply.
type ActionRequest struct {
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters"`
}

// Location returns the location parameter, if any.
func (a ActionRequest) Location() string {
	return a.Parameters[ParamLocation]
}

// ResolvedResponse is the single reply produced for one utterance.
type ResolvedResponse struct {
	Message string `json:"message"`
}
