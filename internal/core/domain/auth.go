package domain

// Principal is the caller identity resolved from a bearer credential.
type Principal struct {
	Subject string
	Scopes  []string
	// Bypass is set when the gate does not enforce credentials.
	Bypass bool
}

func (p Principal) HasScope(scope string) bool {
	if p.Bypass {
		return true
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
