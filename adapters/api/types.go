package api

// EstimateRequest is the JSON body of POST /v1/estimate. Sample identifiers
// are optional; when omitted, rows are numbered. Row order is significant:
// covariates, treatment, and outcome are matched positionally to the
// identifier list.
type EstimateRequest struct {
	IDs        []string    `json:"ids,omitempty"`
	Columns    []string    `json:"columns"`
	Covariates [][]float64 `json:"covariates"`
	Treatment  []string    `json:"treatment"`
	// Outcome entries may be null for missing observations.
	Outcome []*float64 `json:"outcome"`

	EffectTypes []string `json:"effect_types"`
	// Aggregation is "mean" (default) or "median".
	Aggregation string `json:"aggregation,omitempty"`
	// TreatedLevel / ControlLevel pick the contrast. Defaults: the two
	// levels in sorted order, control first.
	TreatedLevel string `json:"treated_level,omitempty"`
	ControlLevel string `json:"control_level,omitempty"`

	ClipLow    *float64 `json:"clip_low,omitempty"`
	ClipHigh   *float64 `json:"clip_high,omitempty"`
	Stabilized *bool    `json:"stabilized,omitempty"`
}

// EstimateResponse is the JSON body returned by POST /v1/estimate.
type EstimateResponse struct {
	ReportID           string             `json:"report_id"`
	PopulationOutcomes map[string]float64 `json:"population_outcomes"`
	Effects            map[string]float64 `json:"effects"`
	Summary            map[string]any     `json:"summary"`
	Warnings           []string           `json:"warnings"`
}

// ErrorResponse carries a machine-readable error kind plus the message with
// the offending values.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
