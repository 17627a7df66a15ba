package model

// StarSystem groups the bodies of one star system. The star is implicit and
// always at the origin.
type StarSystem struct {
	ID       string
	Name     string
	Planets  []Planet
	Stations []Station
}

// Clone returns a deep copy so callers can hand systems across goroutines
// without sharing slices.
func (s StarSystem) Clone() StarSystem {
	out := StarSystem{
		ID:   s.ID,
		Name: s.Name,
	}
	if s.Planets != nil {
		out.Planets = make([]Planet, len(s.Planets))
		for i, p := range s.Planets {
			cp := p
			if p.Moons != nil {
				cp.Moons = make([]Moon, len(p.Moons))
				for j, m := range p.Moons {
					cm := m
					if m.OrbitRadius != nil {
						r := *m.OrbitRadius
						cm.OrbitRadius = &r
					}
					cp.Moons[j] = cm
				}
			}
			out.Planets[i] = cp
		}
	}
	if s.Stations != nil {
		out.Stations = append([]Station(nil), s.Stations...)
	}
	return out
}

// StationByID returns the station with the given ID and whether it exists.
func (s StarSystem) StationByID(id string) (Station, bool) {
	for _, st := range s.Stations {
		if st.ID == id {
			return st, true
		}
	}
	return Station{}, false
}
