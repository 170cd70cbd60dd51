package domain

// TechniqueID identifies one of the supported time-shift techniques.
// The numbering is part of the CLI contract (-t 1..6).
type TechniqueID int

const (
	TechniqueNTPDate  TechniqueID = 1 // one-shot ntpdate sync
	TechniqueNTPD     TechniqueID = 2 // ntpd service pointed at the target
	TechniqueTimesync TechniqueID = 3 // systemd-timesyncd reconfiguration
	TechniqueOpenNTPD TechniqueID = 4 // openntpd service pointed at the target
	TechniqueDateLoop TechniqueID = 5 // direct date -s set
	TechniqueFaketime TechniqueID = 6 // process-scoped faketime wrapper
)

// TechniqueCount is the number of catalogued techniques.
const TechniqueCount = 6

// Technique is an immutable catalog entry. The registry exposes them in
// preference order; the metadata drives eligibility, journaling and the
// failure matrix.
type Technique struct {
	ID                  TechniqueID
	Name                string
	RequiresRoot        bool
	SystemWide          bool
	ContainerCompatible bool
	RequiresSystemd     bool
	SupportsCustomPort  bool
}

// Valid reports whether id names a catalogued technique.
func (id TechniqueID) Valid() bool {
	return id >= TechniqueNTPDate && id <= TechniqueFaketime
}
