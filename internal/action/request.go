package action

// Request is everything a dispatch routine needs to start one action.
type Request struct {
	Kind      Kind
	Routine   string
	Target    string
	Host      string
	Signature string
	Weight    int
	// LogPath is passed through so the routine can append its own records.
	LogPath string
}
