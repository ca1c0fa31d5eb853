package profile

// Record is the static document the assistant answers questions about.
// A nil *Record means the profile has not been loaded (yet).
type Record struct {
	Basics         Basics              `json:"basics"`
	Skills         []string            `json:"skills"`
	Experience     []Experience        `json:"experience"`
	Education      []Education         `json:"education"`
	Certifications []Certification     `json:"certifications"`
	Approaches     map[string][]string `json:"approaches"`
}

type Basics struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Experience entries are ordered most recent first.
type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Description string `json:"description"`
}

type Education struct {
	Institution string `json:"institution"`
	Period      string `json:"period"`
	Degree      string `json:"degree"`
	Location    string `json:"location"`
}

type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	Date   string `json:"date"`
	URL    string `json:"url"`
}

// Approach categories known to the assistant.
const (
	ApproachCommunication = "communication"
	ApproachLeadership    = "leadership"
	ApproachConflict      = "conflict"
	ApproachPressure      = "pressure"
	ApproachChallenge     = "challenge"
	ApproachFailure       = "failure"
)

// Points returns the narrative points stored for an approach category.
func (r *Record) Points(category string) ([]string, bool) {
	if r == nil || r.Approaches == nil {
		return nil, false
	}
	pts, ok := r.Approaches[category]
	if !ok || len(pts) == 0 {
		return nil, false
	}
	return pts, true
}
