package model

// Roster is the ordered list of justices sitting for a term
type Roster []string

// DefaultRoster is the nine-member bench the bundled dataset covers
var DefaultRoster = Roster{
	"Roberts",
	"Thomas",
	"Alito",
	"Sotomayor",
	"Kagan",
	"Gorsuch",
	"Kavanaugh",
	"Barrett",
	"Jackson",
}

// FullBench is the number of seats on the Court
const FullBench = 9

// Contains reports whether name sits on the roster
func (r Roster) Contains(name string) bool {
	for _, n := range r {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns a copy of the roster as a plain slice
func (r Roster) Names() []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}
